package ai

import "strings"

// ExtractJSONBlock strips markdown code fences and surrounding prose from a
// model response, returning the JSON payload. Models routinely wrap JSON in
// ```json fences or append commentary despite prompt instructions.
func ExtractJSONBlock(response string) string {
	s := strings.TrimSpace(response)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Fall back to the outermost bracket pair when prose surrounds the JSON.
	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")
	start := objStart
	endCh := "}"
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		endCh = "]"
	}
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, endCh)
	if end <= start {
		return s
	}
	return s[start : end+1]
}
