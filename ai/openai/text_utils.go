package openai

import "strings"

// cleanAnswer strips the wrapping models like to put around short answers:
// markdown code fences, surrounding quotes and a trailing period.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop an info string such as ```text
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsRune(s[:i], ' ') {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	for len(s) >= 2 && isQuote(s[0]) && s[len(s)-1] == s[0] {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}

func isQuote(b byte) bool {
	return b == '"' || b == '\'' || b == '`'
}
