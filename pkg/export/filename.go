package export

import "strings"

// maxFilenameLength bounds generated file name stems so titles copied
// from chats cannot exceed filesystem limits
const maxFilenameLength = 100

// SanitizeFilename strips characters that are unsafe in file names and
// truncates overly long names. Returns "unnamed" when nothing survives.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			continue
		}
		if r < 0x20 {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.Trim(cleaned, ".")

	runes := []rune(cleaned)
	if len(runes) > maxFilenameLength {
		cleaned = string(runes[:maxFilenameLength])
	}

	if cleaned == "" {
		return "unnamed"
	}
	return cleaned
}
