package types

import "strings"

// InterviewAnswers 是访谈阶段收集的四个自由文本回答。
type InterviewAnswers struct {
	Story    string `json:"story"`
	Setups   string `json:"setups"`
	Mistake  string `json:"mistake"`
	IdealDay string `json:"idealDay"`
}

// Complete 仅当四个字段均非空白时返回 true。
func (a InterviewAnswers) Complete() bool {
	for _, v := range []string{a.Story, a.Setups, a.Mistake, a.IdealDay} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Trade 是观察期内记录的一笔交易，创建后不再修改。
type Trade struct {
	ID             string `json:"id"`
	Screenshot     string `json:"screenshot"` // data: URL，仅保存在内存中
	ScreenshotName string `json:"screenshotName"`
	Reason         string `json:"reason"`
	Timestamp      string `json:"timestamp"`
	Day            int    `json:"day,omitempty"`
}

// InsightCard 是基线报告中的一条洞察。
type InsightCard struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Icon    string `json:"icon"`
}

// Challenge 是根据洞察生成的个性化挑战。
type Challenge struct {
	FocusSetup string `json:"focusSetup"`
	Mission    string `json:"mission"`
}
