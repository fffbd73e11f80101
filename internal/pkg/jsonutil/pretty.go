package jsonutil

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Pretty 将模型输出（可带代码块围栏）格式化为缩进 JSON，非 JSON 原样返回。
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	body := StripFence(raw)
	if !gjson.Valid(body) {
		return raw
	}
	return strings.TrimRight(string(pretty.Pretty([]byte(body))), "\n")
}
