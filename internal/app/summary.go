package app

import (
	"fmt"
	"strings"
	"time"
)

type StartupSummary struct {
	HTTPAddr     string
	Provider     string
	Credential   string
	Policy       string
	Days         int
	MinTrades    int
	SessionTTL   time.Duration
	AuditPath    string
	PromptSource string
	Prompts      []string
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 80)
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(&b, line)

	fmt.Fprintln(&b, "[服务 (SERVER)]")
	fmt.Fprintf(&b, "  监听地址: %s\n", orDash(s.HTTPAddr))
	fmt.Fprintf(&b, "  会话过期: %s\n", s.SessionTTL)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[分析模型 (MODEL)]")
	fmt.Fprintf(&b, "  Provider: %s\n", orDash(s.Provider))
	fmt.Fprintf(&b, "  凭证变量: %s\n", orDash(s.Credential))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[观察期 (OBSERVATION)]")
	switch s.Policy {
	case "min_trades":
		fmt.Fprintf(&b, "  完成条件: 至少 %d 笔交易\n", s.MinTrades)
	default:
		fmt.Fprintf(&b, "  完成条件: %d 个交易日\n", s.Days)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[提示词与审计 (PROMPTS & AUDIT)]")
	fmt.Fprintf(&b, "  模板来源: %s\n", orDash(s.PromptSource))
	fmt.Fprintf(&b, "  模板列表: %s\n", formatList(s.Prompts))
	fmt.Fprintf(&b, "  审计日志: %s\n", orDash(s.AuditPath))
	fmt.Fprintln(&b, line)
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
