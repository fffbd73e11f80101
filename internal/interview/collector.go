package interview

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"apex/internal/flow"
	"apex/internal/types"
)

var (
	// ErrTyping is returned while the next question is still being revealed.
	ErrTyping = errors.New("interview: coach is still typing")
	// ErrFinished is returned for answers after the last question.
	ErrFinished = errors.New("interview: already finished")
)

// ValidationError is an operator-facing, field-level rejection.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Sender string

const (
	SenderCoach Sender = "ai"
	SenderUser  Sender = "user"
)

type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Collector walks the Script one question at a time.
type Collector struct {
	mu         sync.Mutex
	delay      time.Duration
	index      int
	answers    []string
	transcript []Message
	typing     bool
	finished   bool
	reveal     flow.Timer
}

func NewCollector(typingDelay time.Duration) *Collector {
	return &Collector{
		delay:      typingDelay,
		answers:    make([]string, 0, len(Script)),
		transcript: []Message{{Sender: SenderCoach, Text: Script[0].Prompt}},
	}
}

// Current returns the question awaiting an answer.
func (c *Collector) Current() (Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished || c.index >= len(Script) {
		return Question{}, false
	}
	return Script[c.index], true
}

func (c *Collector) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

func (c *Collector) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Answer records text for the current question. On the last question it
// returns the assembled answers and done=true.
func (c *Collector) Answer(text string) (types.InterviewAnswers, bool, error) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return types.InterviewAnswers{}, false, ErrFinished
	}
	if c.typing {
		c.mu.Unlock()
		return types.InterviewAnswers{}, false, ErrTyping
	}
	q := Script[c.index]
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return types.InterviewAnswers{}, false, &ValidationError{Field: q.Field, Message: "Please type a response."}
	}
	c.answers = append(c.answers, text)
	c.transcript = append(c.transcript, Message{Sender: SenderUser, Text: text})

	next := c.index + 1
	if next >= len(Script) {
		c.finished = true
		out := assemble(c.answers)
		c.mu.Unlock()
		return out, true, nil
	}
	c.typing = true
	c.mu.Unlock()

	c.reveal.Schedule(c.delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.index = next
		c.transcript = append(c.transcript, Message{Sender: SenderCoach, Text: Script[next].Prompt})
		c.typing = false
	})
	return types.InterviewAnswers{}, false, nil
}

// SubmitAll is the single-form variant: every field is validated at once.
func (c *Collector) SubmitAll(answers types.InterviewAnswers) (types.InterviewAnswers, error) {
	fields := []struct {
		field Field
		value string
	}{
		{FieldStory, answers.Story},
		{FieldSetups, answers.Setups},
		{FieldMistake, answers.Mistake},
		{FieldIdealDay, answers.IdealDay},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return types.InterviewAnswers{}, &ValidationError{Field: f.field, Message: "This answer is required."}
		}
	}
	c.reveal.Stop()
	c.mu.Lock()
	c.finished = true
	c.typing = false
	c.mu.Unlock()
	return answers, nil
}

// Close cancels a pending question reveal.
func (c *Collector) Close() {
	c.reveal.Stop()
}

func assemble(answers []string) types.InterviewAnswers {
	at := func(i int) string {
		if i < len(answers) {
			return answers[i]
		}
		return ""
	}
	return types.InterviewAnswers{
		Story:    at(0),
		Setups:   at(1),
		Mistake:  at(2),
		IdealDay: at(3),
	}
}
