package engine

import "strings"

// StripPrompt removes an exact echo of prompt from the start of text and trims
// surrounding whitespace from what remains. Text that does not start with the
// prompt verbatim is returned unmodified.
func StripPrompt(text, prompt string) string {
	if !strings.HasPrefix(text, prompt) {
		return text
	}
	return strings.TrimSpace(text[len(prompt):])
}
