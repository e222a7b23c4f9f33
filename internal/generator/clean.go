package generator

import (
	"strings"
	"unicode/utf8"
)

// leakPrefixes start lines where the model echoes its instructions.
var leakPrefixes = []string{"instructions", "consignes", "prompt :", "prompt:"}

// minEchoLen is the shortest user-prompt line treated as a leak when the
// model repeats it. Shorter lines ("Missions", "Profil") are legitimate
// headings.
const minEchoLen = 20

// Clean trims a completion and drops lines that echo the prompt back.
// Runs of blank lines collapse to one.
func Clean(output, userPrompt string) string {
	echoes := make(map[string]bool)
	for _, line := range strings.Split(userPrompt, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) >= minEchoLen {
			echoes[line] = true
		}
	}

	var kept []string
	blank := false
	for _, line := range strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(kept) > 0 {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		if echoes[trimmed] || isLeak(trimmed) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
		blank = false
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isLeak(line string) bool {
	if strings.Contains(line, SystemPersona) {
		return true
	}
	lower := strings.ToLower(line)
	for _, p := range leakPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
