package openai

import "strings"

// cleanText collapses runs of whitespace and trims the result so that
// equivalent titles produce identical embedding requests.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanTexts applies cleanText to every element, returning a new slice.
func cleanTexts(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = cleanText(t)
	}
	return out
}
