package synthesis

import (
	"context"
	"fmt"

	"apex/internal/logger"
	"apex/internal/prompt"
	"apex/internal/types"
)

type ChallengeInput struct {
	SessionID string
	Insights  []types.InsightCard
}

type challengePromptData struct {
	Insights []types.InsightCard
}

type ChallengeResult struct {
	Challenge types.Challenge
	Raw       string
	Err       error
}

func (r ChallengeResult) Failed() bool { return r.Err != nil }

// ChallengeFallback 是生成失败时展示的固定占位挑战。
var ChallengeFallback = types.Challenge{
	FocusSetup: "Error",
	Mission:    "Could not generate a challenge. Please go back and try again.",
}

func (s *Service) BuildChallengePrompt(in ChallengeInput) (string, error) {
	return s.prompts.Render(prompt.NameChallenge, challengePromptData{Insights: in.Insights})
}

// Challenge derives the focus setup and mission from the report cards.
func (s *Service) Challenge(ctx context.Context, in ChallengeInput) ChallengeResult {
	text, err := s.BuildChallengePrompt(in)
	if err != nil {
		return ChallengeResult{Challenge: ChallengeFallback, Err: fmt.Errorf("build challenge prompt: %w", err)}
	}
	c := call{sessionID: in.SessionID, purpose: PurposeChallenge, prompt: text, schema: ChallengeSchema(), name: "challenge"}
	raw, elapsed, err := s.generate(ctx, c)
	if err != nil {
		s.audit(ctx, c, raw, elapsed, nil, err)
		logger.Session(in.SessionID).Warn("challenge synthesis failed", "err", err)
		return ChallengeResult{Challenge: ChallengeFallback, Raw: raw, Err: err}
	}
	ch, err := ParseChallenge(raw)
	if err != nil {
		s.audit(ctx, c, raw, elapsed, nil, err)
		logger.Session(in.SessionID).Warn("challenge response rejected", "err", err)
		return ChallengeResult{Challenge: ChallengeFallback, Raw: raw, Err: err}
	}
	s.audit(ctx, c, raw, elapsed, ch, nil)
	return ChallengeResult{Challenge: ch, Raw: raw}
}
