package synthesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"apex/internal/pkg/jsonutil"
	"apex/internal/types"

	"github.com/tidwall/gjson"
)

var (
	ErrEmptyResponse  = errors.New("synthesis: empty response")
	ErrInvalidJSON    = errors.New("synthesis: response is not valid JSON")
	ErrSchemaMismatch = errors.New("synthesis: response does not match schema")
)

// 常见的包裹字段，模型有时会把数组放进对象里返回。
var insightWrapperKeys = []string{"insights", "items", "cards", "report"}

// ParseInsights decodes a report response into exactly three cards.
func ParseInsights(raw string) ([]types.InsightCard, error) {
	block, err := jsonBlock(raw)
	if err != nil {
		return nil, err
	}
	arr, err := coerceInsightArray(block)
	if err != nil {
		return nil, err
	}
	report, _, err := compiledSchemas()
	if err != nil {
		return nil, err
	}
	if err := validateAgainst(report, arr); err != nil {
		return nil, err
	}
	var cards []types.InsightCard
	if err := strictDecode(arr, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// ParseChallenge decodes a challenge response.
func ParseChallenge(raw string) (types.Challenge, error) {
	block, err := jsonBlock(raw)
	if err != nil {
		return types.Challenge{}, err
	}
	parsed := gjson.Parse(block)
	if parsed.IsArray() && len(parsed.Array()) == 1 {
		block = parsed.Array()[0].Raw
	} else if c := parsed.Get("challenge"); parsed.IsObject() && c.IsObject() {
		block = c.Raw
	}
	_, challenge, err := compiledSchemas()
	if err != nil {
		return types.Challenge{}, err
	}
	if err := validateAgainst(challenge, block); err != nil {
		return types.Challenge{}, err
	}
	var out types.Challenge
	if err := strictDecode(block, &out); err != nil {
		return types.Challenge{}, err
	}
	return out, nil
}

// jsonBlock strips a markdown fence and falls back to extracting the first
// balanced JSON value when the model prefixed it with prose.
func jsonBlock(raw string) (string, error) {
	text := jsonutil.StripFence(raw)
	if text == "" {
		return "", ErrEmptyResponse
	}
	if gjson.Valid(text) {
		return text, nil
	}
	if block, ok := jsonutil.ExtractJSON(text); ok && gjson.Valid(block) {
		return block, nil
	}
	return "", ErrInvalidJSON
}

func coerceInsightArray(block string) (string, error) {
	parsed := gjson.Parse(block)
	if parsed.IsArray() {
		return block, nil
	}
	if !parsed.IsObject() {
		return "", fmt.Errorf("%w: root must be an array or object", ErrSchemaMismatch)
	}
	for _, key := range insightWrapperKeys {
		if v := parsed.Get(key); v.Exists() {
			if !v.IsArray() {
				return "", fmt.Errorf("%w: %s must be an array", ErrSchemaMismatch, key)
			}
			return strings.TrimSpace(v.Raw), nil
		}
	}
	return "", fmt.Errorf("%w: object without an insight array", ErrSchemaMismatch)
}

type validator interface {
	Validate(v interface{}) error
}

func validateAgainst(schema validator, block string) error {
	var doc any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

func strictDecode(block string, out any) error {
	dec := json.NewDecoder(strings.NewReader(block))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}
