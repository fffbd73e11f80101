package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"focusSetup\":\"A\",\"mission\":\"B\"}\n```": `{"focusSetup":"A","mission":"B"}`,
		"```\n[1,2]\n```":                      "[1,2]",
		`{"focusSetup":"A","mission":"B"}`:     `{"focusSetup":"A","mission":"B"}`,
		"  \n{\"a\":1}\n ":                     `{"a":1}`,
		"```json\n[{\"type\":\"x\"}]":          `[{"type":"x"}]`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripFence(in), in)
	}
}

func TestExtractJSON(t *testing.T) {
	out, ok := ExtractJSON("Here you go:\n```json\n{\"mission\":\"log [every] trade\"}\n```\nGood luck")
	assert.True(t, ok)
	assert.Equal(t, `{"mission":"log [every] trade"}`, out)

	out, ok = ExtractJSON(`sure! [{"title":"a}"}] trailing`)
	assert.True(t, ok)
	assert.Equal(t, `[{"title":"a}"}]`, out)

	_, ok = ExtractJSON("no json here")
	assert.False(t, ok)

	_, ok = ExtractJSON(`{"unterminated": [1, 2`)
	assert.False(t, ok)
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "not json", Pretty(" not json "))
	assert.Equal(t, "{\n  \"b\": {\n    \"c\": true\n  }\n}", Pretty("```json\n{\"b\":{\"c\":true}}\n```"))
}
