package synthesis

import (
	"context"
	"fmt"

	"apex/internal/logger"
	"apex/internal/prompt"
	"apex/internal/types"
)

// ReportInput 为空的访谈字段按空字符串处理；交易列表可以为空。
type ReportInput struct {
	SessionID string
	Interview *types.InterviewAnswers
	Trades    []types.Trade
}

type reportPromptData struct {
	Interview types.InterviewAnswers
	Reasons   []string
}

// ReportResult carries either the parsed cards or the fallback card set
// together with the failure.
type ReportResult struct {
	Insights []types.InsightCard
	Raw      string
	Err      error
}

func (r ReportResult) Failed() bool { return r.Err != nil }

// BuildReportPrompt renders the report prompt.
func (s *Service) BuildReportPrompt(in ReportInput) (string, error) {
	data := reportPromptData{}
	if in.Interview != nil {
		data.Interview = *in.Interview
	}
	for _, t := range in.Trades {
		data.Reasons = append(data.Reasons, t.Reason)
	}
	return s.prompts.Render(prompt.NameReport, data)
}

// Report builds the prompt, calls the provider once and parses three cards.
// Failures yield the error card instead of an error return.
func (s *Service) Report(ctx context.Context, in ReportInput) ReportResult {
	text, err := s.BuildReportPrompt(in)
	if err != nil {
		return reportFailure(fmt.Errorf("build report prompt: %w", err), "")
	}
	c := call{sessionID: in.SessionID, purpose: PurposeReport, prompt: text, schema: ReportSchema(), name: "insight_cards"}
	raw, elapsed, err := s.generate(ctx, c)
	if err != nil {
		s.audit(ctx, c, raw, elapsed, nil, err)
		logger.Session(in.SessionID).Warn("report synthesis failed", "err", err)
		return reportFailure(err, raw)
	}
	cards, err := ParseInsights(raw)
	if err != nil {
		s.audit(ctx, c, raw, elapsed, nil, err)
		logger.Session(in.SessionID).Warn("report response rejected", "err", err)
		return reportFailure(err, raw)
	}
	s.audit(ctx, c, raw, elapsed, cards, nil)
	return ReportResult{Insights: cards, Raw: raw}
}

func reportFailure(err error, raw string) ReportResult {
	return ReportResult{Insights: []types.InsightCard{ReportFallback(err)}, Raw: raw, Err: err}
}

// ReportFallback is the single card shown when the report cannot be built.
func ReportFallback(err error) types.InsightCard {
	content := "Something went wrong while analyzing your trades. Please try again."
	switch {
	case IsConfigError(err):
		content = "The analysis service is not configured: the API key is missing."
	case err != nil:
		content = fmt.Sprintf("Could not generate your report: %v", err)
	}
	return types.InsightCard{
		Type:    "error",
		Title:   "Error Loading Report",
		Content: content,
		Icon:    "⚠️",
	}
}
