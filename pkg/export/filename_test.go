package export

import (
	"strings"
	"testing"
)

func TestSanitizeFilenameStripsUnsafeChars(t *testing.T) {
	got := SanitizeFilename(`Chat: "friends" <2024>/old|new?*`)
	if strings.ContainsAny(got, `<>:"/\|?*`) {
		t.Errorf("result %q still contains unsafe characters", got)
	}
	if got != "Chat friends 2024oldnew" {
		t.Errorf("SanitizeFilename() = %q", got)
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := strings.Repeat("я", 300)
	got := SanitizeFilename(long)
	if n := len([]rune(got)); n != 100 {
		t.Errorf("got %d runes, want 100", n)
	}
}

func TestSanitizeFilenameKeepsUnicode(t *testing.T) {
	got := SanitizeFilename("Иван Петров")
	if got != "Иван Петров" {
		t.Errorf("SanitizeFilename() = %q, want name unchanged", got)
	}
}

func TestSanitizeFilenameEmptyResult(t *testing.T) {
	cases := []string{"", `<>:"/\|?*`, "   ", "..."}
	for _, in := range cases {
		if got := SanitizeFilename(in); got != "unnamed" {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, "unnamed")
		}
	}
}
