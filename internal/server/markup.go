package server

import (
	"regexp"
	"strings"
)

type markupRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order; bold must run before italic so "**" is not read as two
// single asterisks.
var markupRules = []markupRule{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile("`(.*?)`"), "$1"},
	{regexp.MustCompile(`#{1,6}\s`), ""},
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},
	{regexp.MustCompile(`(?m)^\s*[-*+]\s`), "• "},
	{regexp.MustCompile(`(?m)^\s*\d+\.\s`), ""},
}

// stripMarkup turns a markdown-ish completion into plain text for the chat
// bubble.
func stripMarkup(text string) string {
	for _, rule := range markupRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return strings.TrimSpace(text)
}
