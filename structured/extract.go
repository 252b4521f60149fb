// Package structured turns untrusted model text into schema-valid JSON
// payloads. It isolates the first balanced JSON object from surrounding
// prose, decodes it, applies caller-supplied schema checks, and on failure
// asks the model to repair its own output a bounded number of times.
package structured

// FirstObject scans text for the first balanced {...} block and returns it.
// The scanner is string-literal-aware: braces inside quoted strings,
// including strings with escaped quotes, do not affect nesting depth. JSON
// string values routinely contain literal braces, so a naive counter would
// terminate early.
func FirstObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
