package interview

// Field names the InterviewAnswers slot a question fills.
type Field string

const (
	FieldStory    Field = "story"
	FieldSetups   Field = "setups"
	FieldMistake  Field = "mistake"
	FieldIdealDay Field = "idealDay"
)

type Question struct {
	Field  Field
	Prompt string
}

// Script is the fixed question order.
var Script = []Question{
	{
		Field:  FieldStory,
		Prompt: "Great. Let's start with your story. Briefly, what markets do you trade, and for how long have you been trading?",
	},
	{
		Field:  FieldSetups,
		Prompt: "Thank you. Now, let's talk about your playbook. What are the names of the primary setups you trade? (e.g., 'Opening Range Breakout', 'RSI Divergence'). Just list them out.",
	},
	{
		Field:  FieldMistake,
		Prompt: "Got it. This is a crucial question: What is the #1 mistake that you feel holds you back the most? (e.g., 'Revenge trading', 'Moving my stop-loss').",
	},
	{
		Field:  FieldIdealDay,
		Prompt: "I understand. That's a very common challenge. Finally, in a perfect world, what does a successful trading day feel like to you?",
	},
}
