package onboardinghttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"apex/internal/analysis/visual"
	"apex/internal/flow"
	"apex/internal/interview"
	"apex/internal/journal"
	"apex/internal/logger"
	"apex/internal/synthesis"
	"apex/internal/types"

	"github.com/gin-gonic/gin"
)

const (
	msgTyping          = "Please wait for the next question."
	msgConfigError     = "The analysis service is not configured. Set the API key environment variable and try again."
	msgNeedTrades      = "Log at least one trade before finishing the observation."
	msgGenerating      = "Your coach is still working on it."
	defaultAuditLimit  = 20
	maxAuditLimit      = 200
	generatingRefreshS = 2
)

type handler struct {
	cfg      ServerConfig
	sessions *Registry
	// jobs tracks synthesis calls running in the background.
	jobs sync.WaitGroup
}

func (h *handler) register(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/session") })

	g := r.Group("/session")
	g.GET("", h.show)
	g.POST("/advance", h.advance)
	g.POST("/goto", h.goTo)
	g.POST("/interview", h.answer)
	g.POST("/interview/all", h.submitInterview)
	g.POST("/trades", h.addTrade)
	g.POST("/day/end", h.endDay)
	g.POST("/observation/complete", h.completeObservation)
	g.POST("/report", h.generateReport)
	g.POST("/report/complete", h.completeReport)
	g.POST("/challenge", h.generateChallenge)
	g.POST("/challenge/complete", h.completeChallenge)
	g.GET("/chart", h.chart)

	api := r.Group("/api")
	api.GET("/session", h.apiSession)
	api.GET("/session/audit", h.apiAudit)
}

// acquire returns the caller's locked session and refreshes its cookie.
func (h *handler) acquire(c *gin.Context) *sessionState {
	id, _ := c.Cookie(sessionCookie)
	st, _ := h.sessions.Acquire(id)
	// 每次请求都续期 cookie，与服务端 lastSeen 的滑动过期保持一致
	maxAge := int(h.cfg.SessionTTL / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, st.id, maxAge, "/", "", h.cfg.SecureCookie, true)
	return st
}

func (h *handler) factory() sessionFactory {
	return h.sessions.factory
}

func seeOther(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/session")
}

// onStep 只在会话处于 step 时继续，否则回到当前页面。
func onStep(c *gin.Context, st *sessionState, step flow.Step) bool {
	if st.ctrl.Step() == step {
		return true
	}
	seeOther(c)
	return false
}

func (h *handler) show(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	h.render(c, st, http.StatusOK, "")
}

func (h *handler) advance(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	from, ok := flow.ParseStep(c.PostForm("from"))
	switch {
	case !ok:
	case from != st.ctrl.Step():
	case from == flow.StepSplash, from == flow.StepIntroduction, from == flow.StepObservationInstructions:
		st.ctrl.Advance()
	}
	seeOther(c)
}

// goTo only moves backwards: the recovery and restart actions.
func (h *handler) goTo(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	target, ok := flow.ParseStep(c.PostForm("step"))
	if ok && target < st.ctrl.Step() {
		_ = st.ctrl.GoTo(target)
	}
	seeOther(c)
}

func (h *handler) answer(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepInterview) {
		return
	}
	answers, done, err := st.collector.Answer(c.PostForm("answer"))
	var verr *interview.ValidationError
	switch {
	case errors.As(err, &verr):
		h.render(c, st, http.StatusUnprocessableEntity, verr.Message)
		return
	case errors.Is(err, interview.ErrTyping):
		h.render(c, st, http.StatusConflict, msgTyping)
		return
	case err != nil:
		seeOther(c)
		return
	}
	if done {
		if err := st.ctrl.CompleteInterview(answers); err != nil {
			h.render(c, st, http.StatusUnprocessableEntity, "Please answer every question.")
			return
		}
	}
	seeOther(c)
}

// submitInterview accepts all four answers in one form.
func (h *handler) submitInterview(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepInterview) {
		return
	}
	answers, err := st.collector.SubmitAll(types.InterviewAnswers{
		Story:    c.PostForm(string(interview.FieldStory)),
		Setups:   c.PostForm(string(interview.FieldSetups)),
		Mistake:  c.PostForm(string(interview.FieldMistake)),
		IdealDay: c.PostForm(string(interview.FieldIdealDay)),
	})
	var verr *interview.ValidationError
	if errors.As(err, &verr) {
		h.render(c, st, http.StatusUnprocessableEntity, fmt.Sprintf("%s: %s", verr.Field, verr.Message))
		return
	}
	if err == nil {
		_ = st.ctrl.CompleteInterview(answers)
	}
	seeOther(c)
}

func (h *handler) addTrade(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+1<<20)
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepDailyLogging) {
		return
	}
	shot, err := h.readScreenshot(c)
	if err == nil {
		_, err = st.journal.AddTrade(c.PostForm("reason"), shot)
	}
	if tooLarge(err) {
		err = &journal.ValidationError{Field: "screenshot", Message: journal.TooLargeMessage(h.cfg.MaxUploadBytes)}
	}
	var verr *journal.ValidationError
	if errors.As(err, &verr) {
		h.render(c, st, http.StatusUnprocessableEntity, verr.Message)
		return
	}
	if err != nil {
		logger.Session(st.id).Warn("trade upload failed", "err", err)
		h.render(c, st, http.StatusBadRequest, "Could not read the upload. Please try again.")
		return
	}
	seeOther(c)
}

// tooLarge 识别 MaxBytesReader 截断请求体产生的错误。
func tooLarge(err error) bool {
	if err == nil {
		return false
	}
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "http: request body too large")
}

func (h *handler) readScreenshot(c *gin.Context) (*journal.Screenshot, error) {
	file, header, err := c.Request.FormFile("screenshot")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	return journal.DecodeScreenshot(header.Filename, data, h.cfg.MaxUploadBytes)
}

func (h *handler) endDay(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepDailyLogging) {
		return
	}
	st.journal.EndDay()
	seeOther(c)
}

func (h *handler) completeObservation(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepDailyLogging) {
		return
	}
	if !st.journal.Ready() {
		h.render(c, st, http.StatusConflict, notReadyMessage(st.journal.Policy()))
		return
	}
	if !st.ctrl.CompleteObservation(st.journal.List()) {
		h.render(c, st, http.StatusUnprocessableEntity, msgNeedTrades)
		return
	}
	seeOther(c)
}

func notReadyMessage(p journal.Policy) string {
	if p.UsesDays() {
		return fmt.Sprintf("The observation runs for %d days. End each day before finishing.", p.Days)
	}
	return fmt.Sprintf("Log at least %d trades before finishing the observation.", p.MinTrades)
}

// generateReport 在后台调用分析服务并立即重定向，页面随后显示 "generating…"
// 并自动刷新，直到结果写回会话。
func (h *handler) generateReport(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if st.ctrl.Step() != flow.StepReport || (st.report != nil && st.report.err == nil) {
		seeOther(c)
		return
	}
	if pre := st.ctrl.Prerequisite(flow.StepReport); pre.Missing {
		h.render(c, st, http.StatusOK, "")
		return
	}
	if err := st.ctrl.BeginSynthesis(); err != nil {
		h.render(c, st, http.StatusAccepted, msgGenerating)
		return
	}
	snap := st.ctrl.Snapshot()
	in := synthesis.ReportInput{SessionID: st.id, Interview: snap.Interview, Trades: snap.Trades}
	epoch := st.epoch
	st.report = nil
	ctx := context.WithoutCancel(c.Request.Context())

	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		res := h.cfg.Synth.Report(ctx, in)

		st.mu.Lock()
		defer st.mu.Unlock()
		st.ctrl.EndSynthesis()
		if st.current(flow.StepReport, epoch) {
			st.report = &reportDraft{insights: res.Insights, err: res.Err}
		}
	}()
	seeOther(c)
}

func (h *handler) completeReport(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepReport) {
		return
	}
	if st.report != nil && st.report.err == nil {
		st.ctrl.CompleteReport(st.report.insights)
	}
	seeOther(c)
}

func (h *handler) generateChallenge(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if st.ctrl.Step() != flow.StepChallenge || (st.challenge != nil && st.challenge.err == nil) {
		seeOther(c)
		return
	}
	if pre := st.ctrl.Prerequisite(flow.StepChallenge); pre.Missing {
		h.render(c, st, http.StatusOK, "")
		return
	}
	if err := st.ctrl.BeginSynthesis(); err != nil {
		h.render(c, st, http.StatusAccepted, msgGenerating)
		return
	}
	in := synthesis.ChallengeInput{SessionID: st.id, Insights: st.ctrl.Snapshot().Insights}
	epoch := st.epoch
	st.challenge = nil
	ctx := context.WithoutCancel(c.Request.Context())

	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		res := h.cfg.Synth.Challenge(ctx, in)

		st.mu.Lock()
		defer st.mu.Unlock()
		st.ctrl.EndSynthesis()
		if st.current(flow.StepChallenge, epoch) {
			st.challenge = &challengeDraft{challenge: res.Challenge, err: res.Err}
		}
	}()
	seeOther(c)
}

func (h *handler) completeChallenge(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	if !onStep(c, st, flow.StepChallenge) {
		return
	}
	if st.challenge != nil && st.challenge.err == nil {
		st.ctrl.CompleteChallenge(st.challenge.challenge)
	}
	seeOther(c)
}

func (h *handler) chart(c *gin.Context) {
	st := h.acquire(c)
	trades := st.ctrl.Snapshot().Trades
	var perDay []int
	if st.journal != nil {
		if len(trades) == 0 {
			trades = st.journal.List()
		}
		perDay = st.journal.TradesPerDay()
	} else {
		perDay = groupByDay(trades)
	}
	st.mu.Unlock()

	page, err := visual.RenderObservation(visual.ObservationInput{TradesPerDay: perDay, Trades: trades})
	if err != nil {
		logger.Errorf("render chart failed: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func groupByDay(trades []types.Trade) []int {
	days := 0
	for _, t := range trades {
		if t.Day > days {
			days = t.Day
		}
	}
	out := make([]int, days)
	for _, t := range trades {
		if t.Day >= 1 {
			out[t.Day-1]++
		}
	}
	return out
}

func (h *handler) apiSession(c *gin.Context) {
	st := h.acquire(c)
	defer st.mu.Unlock()
	step := st.ctrl.Step()
	body := gin.H{
		"id":      st.id,
		"step":    step.String(),
		"busy":    st.ctrl.Busy(),
		"session": st.ctrl.Snapshot(),
	}
	if pre := st.ctrl.Prerequisite(step); pre.Missing {
		body["missing"] = gin.H{"message": pre.Message, "recovery": pre.Recovery.String(), "action": pre.Action}
	}
	if step == flow.StepDailyLogging && st.journal != nil {
		body["observation"] = gin.H{
			"day":    st.journal.Day(),
			"trades": st.journal.List(),
			"ready":  st.journal.Ready(),
			"policy": st.journal.Policy(),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) apiAudit(c *gin.Context) {
	if h.cfg.Audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit log disabled"})
		return
	}
	st := h.acquire(c)
	id := st.id
	st.mu.Unlock()

	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxAuditLimit)
		}
	}
	rows, err := h.cfg.Audit.ListSynthesis(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"id":          r.ID,
			"purpose":     r.Purpose,
			"provider":    r.Provider,
			"failed":      r.Failed(),
			"error":       r.Error,
			"parsed":      r.Parsed,
			"duration_ms": r.DurationMS,
			"created_at":  time.UnixMilli(r.CreatedAtUnix).Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func refreshSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
