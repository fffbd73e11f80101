package logger

import (
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter 设置分析请求/响应的独立日志输出，nil 表示关闭。
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, provider, purpose string, sections []llmSection) {
	llmMu.Lock()
	l := llmLog
	llmMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, provider, purpose} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogLLMRequest 记录一次分析请求；schema 仅在开启 payload dump 时输出。
func LogLLMRequest(provider, purpose, prompt, schema string) {
	sections := []llmSection{{Title: "PROMPT", Body: prompt}}
	llmMu.Lock()
	dump := llmDumpPayload
	llmMu.Unlock()
	if dump && strings.TrimSpace(schema) != "" {
		sections = append(sections, llmSection{Title: "SCHEMA", Body: schema})
	}
	logLLM("request", provider, purpose, sections)
}

func LogLLMResponse(provider, purpose, raw string, elapsed time.Duration, err error) {
	sections := []llmSection{{Title: "RAW", Body: raw}}
	if err != nil {
		sections = append(sections, llmSection{Title: "ERROR", Body: err.Error()})
	}
	sections = append(sections, llmSection{Title: "ELAPSED", Body: elapsed.Round(time.Millisecond).String()})
	logLLM("response", provider, purpose, sections)
}
