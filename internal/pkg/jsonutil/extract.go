package jsonutil

import (
	"strings"
)

const codeFence = "```"

// StripFence removes a surrounding markdown code fence (with an optional
// language tag such as ```json). Text without a fence is returned trimmed;
// an empty fence yields "".
func StripFence(raw string) string {
	raw = strings.TrimSpace(raw)
	block, ok := fencedBlock(raw)
	if !ok {
		return raw
	}
	return block
}

// ExtractJSON returns the first balanced JSON array or object in raw,
// looking inside a code fence first.
func ExtractJSON(raw string) (string, bool) {
	out, _, ok := extract(raw)
	return out, ok
}

func ExtractJSONWithOffset(raw string) (string, int, bool) {
	return extract(raw)
}

func extract(raw string) (string, int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", -1, false
	}
	offset := 0
	if block, ok := fencedBlock(raw); ok {
		if block == "" {
			return "", -1, false
		}
		offset = strings.Index(raw, block)
		raw = block
	}
	out, rel, ok := extractBalanced(raw)
	if !ok {
		return "", -1, false
	}
	return out, offset + rel, true
}

func fencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		// 只有开头的 fence，截到末尾
		end = len(rest)
	}
	block := strings.TrimLeft(rest[:end], "\r\n")
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
		}
	} else if tag := strings.TrimSpace(block); tag != "" && !strings.ContainsAny(tag, "[{") {
		// 只有语言标记，没有内容
		return "", true
	}
	return strings.TrimSpace(block), true
}

// extractBalanced picks whichever of '[' or '{' opens first.
func extractBalanced(raw string) (string, int, bool) {
	arr := strings.Index(raw, "[")
	obj := strings.Index(raw, "{")
	switch {
	case arr == -1 && obj == -1:
		return "", -1, false
	case obj == -1 || (arr != -1 && arr < obj):
		return scanBalanced(raw, arr, '[', ']')
	default:
		return scanBalanced(raw, obj, '{', '}')
	}
}

func scanBalanced(raw string, start int, open, close byte) (string, int, bool) {
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), start, true
			}
		}
	}
	return "", -1, false
}
