package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructFields(t *testing.T) {
	text := "hi"
	type sample struct {
		From    string  `redis:"from"`
		Text    *string `redis:"text"`
		GifUrl  *string `redis:"gif_url"`
		Skipped string  `redis:"-"`
		NoTag   int
		hidden  string
	}

	fields := StructFields(&sample{From: "a", Text: &text, NoTag: 3, Skipped: "x", hidden: "y"}, "redis")
	assert.Equal(t, map[string]any{
		"from":  "a",
		"text":  "hi",
		"NoTag": 3,
	}, fields)

	assert.Empty(t, StructFields((*sample)(nil), "redis"))
	assert.Empty(t, StructFields(42, "redis"))
}
