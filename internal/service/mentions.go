package service

import (
	"strings"
	"unicode"
)

// scanMentions extracts the distinct @username tokens from comment content,
// in order of first appearance. A mention is '@' followed by letters, digits
// or underscores, and must not be preceded by a word character (so email
// addresses are not mentions).
func scanMentions(content string) []string {
	var mentions []string
	seen := make(map[string]struct{})

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '@' {
			continue
		}
		if i > 0 && isWordRune(runes[i-1]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		if j == i+1 {
			continue
		}
		name := strings.ToLower(string(runes[i+1 : j]))
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			mentions = append(mentions, name)
		}
		i = j - 1
	}
	return mentions
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
