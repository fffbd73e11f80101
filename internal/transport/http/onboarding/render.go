package onboardinghttp

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"apex/internal/flow"
	"apex/internal/synthesis"

	"github.com/gin-gonic/gin"
)

var templateFuncs = template.FuncMap{
	"add":     func(a, b int) int { return a + b },
	"sub":     func(a, b int) int { return a - b },
	"percent": percent,
	"upper":   strings.ToUpper,
	// 截图只以 data:image/ URL 形式保存在内存中
	"imageURL": func(s string) template.URL {
		if !strings.HasPrefix(s, "data:image/") {
			return ""
		}
		return template.URL(s)
	},
}

func percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	if n > total {
		n = total
	}
	return n * 100 / total
}

// render draws the screen of the current step.
func (h *handler) render(c *gin.Context, st *sessionState, status int, msg string) {
	step := st.ctrl.Step()
	if step == flow.StepSplash {
		st.ctrl.ArmAutoAdvance(flow.StepSplash, h.cfg.SplashDelay)
		if step = st.ctrl.Step(); step != flow.StepSplash {
			st.mount(h.factory())
		}
	}
	data := gin.H{
		"Step":  step.String(),
		"Error": msg,
	}
	if pre := st.ctrl.Prerequisite(step); pre.Missing {
		data["Message"] = pre.Message
		data["Recovery"] = pre.Recovery.String()
		data["Action"] = pre.Action
		c.HTML(status, "recovery", data)
		return
	}
	switch step {
	case flow.StepSplash:
		data["Refresh"] = refreshSeconds(h.cfg.SplashDelay)
		c.HTML(status, "splash", data)
	case flow.StepIntroduction:
		c.HTML(status, "introduction", data)
	case flow.StepInterview:
		h.renderInterview(c, st, status, data)
	case flow.StepObservationInstructions:
		data["Policy"] = h.cfg.Policy
		c.HTML(status, "instructions", data)
	case flow.StepDailyLogging:
		h.renderLogging(c, st, status, data)
	case flow.StepReport:
		h.renderReport(c, st, status, data)
	case flow.StepChallenge:
		h.renderChallenge(c, st, status, data)
	default:
		snap := st.ctrl.Snapshot()
		data["Challenge"] = snap.Challenge
		data["TradeCount"] = len(snap.Trades)
		c.HTML(status, "dashboard", data)
	}
}

func (h *handler) renderInterview(c *gin.Context, st *sessionState, status int, data gin.H) {
	typing := st.collector.Typing()
	data["Transcript"] = st.collector.Transcript()
	data["Typing"] = typing
	data["Field"] = ""
	if typing {
		data["Refresh"] = refreshSeconds(h.cfg.TypingDelay)
	}
	if q, ok := st.collector.Current(); ok {
		data["Field"] = string(q.Field)
	}
	c.HTML(status, "interview", data)
}

func (h *handler) renderLogging(c *gin.Context, st *sessionState, status int, data gin.H) {
	j := st.journal
	policy := j.Policy()
	trades := j.List()
	data["Day"] = j.Day()
	data["Policy"] = policy
	data["Trades"] = trades
	data["Ready"] = j.Ready()
	data["MaxUploadMB"] = h.cfg.MaxUploadBytes >> 20
	if policy.UsesDays() {
		data["Progress"] = percent(j.Day(), policy.Days)
	} else {
		data["Progress"] = percent(len(trades), policy.MinTrades)
	}
	c.HTML(status, "logging", data)
}

func (h *handler) renderReport(c *gin.Context, st *sessionState, status int, data gin.H) {
	if st.ctrl.Busy() {
		h.renderGenerating(c, status, data, "Analyzing your trades…")
		return
	}
	if st.report == nil {
		c.HTML(status, "report_start", data)
		return
	}
	if synthesis.IsConfigError(st.report.err) {
		st.report = nil
		h.renderError(c, http.StatusInternalServerError, msgConfigError)
		return
	}
	cards := st.report.insights
	idx := cardIndex(c, len(cards))
	data["Cards"] = cards
	data["Card"] = cards[idx]
	data["Index"] = idx
	data["Last"] = idx == len(cards)-1
	data["Failed"] = st.report.err != nil
	c.HTML(status, "report", data)
}

func cardIndex(c *gin.Context, n int) int {
	idx, err := strconv.Atoi(c.Query("card"))
	if err != nil || idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

func (h *handler) renderChallenge(c *gin.Context, st *sessionState, status int, data gin.H) {
	if st.ctrl.Busy() {
		h.renderGenerating(c, status, data, "Designing your challenge…")
		return
	}
	if st.challenge == nil {
		c.HTML(status, "challenge_start", data)
		return
	}
	if synthesis.IsConfigError(st.challenge.err) {
		st.challenge = nil
		h.renderError(c, http.StatusInternalServerError, msgConfigError)
		return
	}
	data["Challenge"] = st.challenge.challenge
	data["Failed"] = st.challenge.err != nil
	c.HTML(status, "challenge", data)
}

func (h *handler) renderGenerating(c *gin.Context, status int, data gin.H, title string) {
	data["Title"] = title
	data["Refresh"] = generatingRefreshS
	c.HTML(status, "generating", data)
}

func (h *handler) renderError(c *gin.Context, status int, msg string) {
	c.HTML(status, "error", gin.H{"Error": msg})
}
