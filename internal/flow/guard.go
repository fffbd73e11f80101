package flow

// Prerequisite describes whether a step has the upstream data it needs and,
// if not, where the operator should be routed back to.
type Prerequisite struct {
	Missing  bool
	Message  string
	Recovery Step
	Action   string
}

// Prerequisite checks the data a step needs before its screen may run any
// synthesis. Steps without requirements always report satisfied.
func (c *Controller) Prerequisite(step Step) Prerequisite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return checkPrerequisite(step, c.data)
}

func checkPrerequisite(step Step, data Session) Prerequisite {
	switch step {
	case StepReport:
		if data.Interview == nil || len(data.Trades) == 0 {
			return Prerequisite{
				Missing:  true,
				Message:  "Missing data to generate report.",
				Recovery: StepIntroduction,
				Action:   "Restart",
			}
		}
	case StepChallenge:
		if data.Insights == nil {
			return Prerequisite{
				Missing:  true,
				Message:  "Missing report data.",
				Recovery: StepReport,
				Action:   "Go Back",
			}
		}
	}
	return Prerequisite{}
}
