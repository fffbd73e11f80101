package flow

import "strings"

// Step 是引导流程中的一个阶段，按声明顺序严格递增。
type Step int

const (
	StepSplash Step = iota
	StepIntroduction
	StepInterview
	StepObservationInstructions
	StepDailyLogging
	StepReport
	StepChallenge
	StepDashboard
)

var stepNames = [...]string{
	StepSplash:                  "splash",
	StepIntroduction:            "introduction",
	StepInterview:               "interview",
	StepObservationInstructions: "observation_instructions",
	StepDailyLogging:            "daily_logging",
	StepReport:                  "report",
	StepChallenge:               "challenge",
	StepDashboard:               "dashboard",
}

func (s Step) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stepNames[s]
}

func (s Step) Valid() bool {
	return s >= StepSplash && s <= StepDashboard
}

// Next 返回下一个阶段；Dashboard 是终点，返回自身。
func (s Step) Next() Step {
	if s >= StepDashboard {
		return StepDashboard
	}
	return s + 1
}

// ParseStep 按名称（大小写不敏感）解析阶段。
func ParseStep(name string) (Step, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stepNames {
		if n == name {
			return Step(i), true
		}
	}
	return StepSplash, false
}
