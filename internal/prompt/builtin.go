package prompt

const (
	NameReport    = "report"
	NameChallenge = "challenge"
)

// 内置模板；templates_path 可以按名称覆盖。
const reportTemplate = `You are an expert trading psychologist and performance coach.
Study the trader's interview and the reasons they gave for every trade logged during their observation week.

## Interview
- Trading story: {{.Interview.Story}}
- Primary setups: {{.Interview.Setups}}
- Biggest mistake: {{.Interview.Mistake}}
- Ideal trading day: {{.Interview.IdealDay}}

## Logged trades
{{- if .Reasons}}
{{- range $i, $reason := .Reasons}}
- Trade {{inc $i}}: {{$reason}}
{{- end}}
{{- else}}
no trades
{{- end}}

## Task
Return exactly 3 insight cards as a JSON array, one card per category, in this order:
1. "Identified Pattern": a recurring behaviour visible across the trades.
2. "Psychological Loop": the emotional cycle that connects their #1 mistake to their trades.
3. "Hidden Strength": the setup or habit where they are at their best.
Each card is an object with "type" (the category), "title", "content" (2-3 sentences, second person) and "icon" (a single emoji).
Return only the JSON array.`

const challengeTemplate = `You are a trading performance coach designing a one-week challenge.
Base it strictly on the trader's baseline report below.

## Baseline report
{{- range $i, $card := .Insights}}
{{inc $i}}. [{{$card.Type}}] {{$card.Title}}: {{$card.Content}}
{{- end}}

## Task
- "focusSetup": the single setup to trade exclusively, drawn from the Hidden Strength card.
- "mission": one concrete behavioural rule that addresses the negative pattern and loop above.
Return only a JSON object with exactly the keys "focusSetup" and "mission".`

func builtinTemplates() map[string]Template {
	return map[string]Template{
		NameReport: {
			Name:        NameReport,
			Description: "baseline report: three insight cards",
			Version:     1,
			Text:        reportTemplate,
		},
		NameChallenge: {
			Name:        NameChallenge,
			Description: "custom challenge: focus setup and mission",
			Version:     1,
			Text:        challengeTemplate,
		},
	}
}
