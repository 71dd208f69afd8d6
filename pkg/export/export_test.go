package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vkdump/pkg/logger"
	"vkdump/pkg/normalize"
)

func TestSaveJSONRoundTrip(t *testing.T) {
	persister, err := NewPersister(t.TempDir(), logger.GetLogger())
	if err != nil {
		t.Fatalf("NewPersister() error: %v", err)
	}

	dialog := normalize.Dialog{
		Title:  "Ivan Petrov",
		PeerID: 12345,
		Type:   "user",
		Messages: []normalize.Message{
			{ID: 1, FromID: 12345, Date: 1609459200, DateFormatted: "01.01.2021 00:00:00", Text: "hi"},
		},
	}

	path, err := persister.SaveJSON("Ivan Petrov_12345", &dialog)
	if err != nil {
		t.Fatalf("SaveJSON() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read archive: %v", err)
	}

	var decoded normalize.Dialog
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("archive is not valid JSON: %v", err)
	}
	if decoded.PeerID != 12345 || len(decoded.Messages) != 1 {
		t.Error("archive lost data")
	}
}

func TestSaveJSONSanitizesStem(t *testing.T) {
	dir := t.TempDir()
	persister, err := NewPersister(dir, logger.GetLogger())
	if err != nil {
		t.Fatalf("NewPersister() error: %v", err)
	}

	path, err := persister.SaveJSON(`bad/name?`, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("SaveJSON() error: %v", err)
	}
	if filepath.Base(path) != "badname.json" {
		t.Errorf("file name = %q, want sanitized stem", filepath.Base(path))
	}
}

func TestMediaDir(t *testing.T) {
	dir := t.TempDir()
	persister, err := NewPersister(dir, logger.GetLogger())
	if err != nil {
		t.Fatalf("NewPersister() error: %v", err)
	}

	got := persister.MediaDir("posts_club1")
	want := filepath.Join(dir, "posts_club1_files")
	if got != want {
		t.Errorf("MediaDir() = %q, want %q", got, want)
	}
}

func TestDialogHTML(t *testing.T) {
	renderer, err := NewRenderer(nil, logger.GetLogger())
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	dialog := &normalize.Dialog{
		Title:  "Ivan Petrov",
		PeerID: 12345,
		Type:   "user",
		Messages: []normalize.Message{
			{
				ID:            1,
				FromID:        12345,
				Date:          1609459200,
				DateFormatted: "01.01.2021 00:00:00",
				Text:          "hello <script>alert(1)</script>",
				Link:   "https://vk.com/im?sel=12345&msgid=1",
				Attachments: []normalize.Attachment{
					{Type: "photo", URL: "http://img/photo.jpg"},
				},
			},
		},
	}

	page, err := renderer.DialogHTML(dialog)
	if err != nil {
		t.Fatalf("DialogHTML() error: %v", err)
	}

	html := string(page)
	if !strings.Contains(html, "Ivan Petrov") {
		t.Error("page is missing the dialog title")
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Error("message text was not escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("escaped message text is missing")
	}
	if !strings.Contains(html, `src="http://img/photo.jpg"`) {
		t.Error("photo attachment is missing")
	}
	if !strings.Contains(html, "msgid=1") {
		t.Error("message permalink is missing")
	}
}

func TestDialogHTMLNestedForwards(t *testing.T) {
	renderer, err := NewRenderer(nil, logger.GetLogger())
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	dialog := &normalize.Dialog{
		Title:  "chat",
		PeerID: 2000000001,
		Type:   "chat",
		Messages: []normalize.Message{
			{
				ID:   2,
				Text: "outer",
				ForwardedMessages: []normalize.Message{
					{ID: 1, Text: "inner"},
				},
			},
		},
	}

	page, err := renderer.DialogHTML(dialog)
	if err != nil {
		t.Fatalf("DialogHTML() error: %v", err)
	}
	if !strings.Contains(string(page), "inner") {
		t.Error("forwarded message is missing")
	}
}

func TestPostsHTML(t *testing.T) {
	localized := make(map[string]string)
	localize := func(url string) string {
		localized[url] = "cached/" + filepath.Base(url)
		return localized[url]
	}

	renderer, err := NewRenderer(localize, logger.GetLogger())
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}

	archive := &normalize.PostsArchive{
		Type:       normalize.ArchiveTypePosts,
		ExportDate: "01.06.2024 12:00:00",
		Community: &normalize.Community{
			ID:   500,
			Name: "Клуб",
			Link: "https://vk.com/club500",
		},
		PostsCount: 1,
		Posts: []normalize.Post{
			{
				ID:            7,
				OwnerID:       -500,
				Date:          1609459200,
				DateFormatted: "01.01.2021 00:00:00",
				Text:          "post body",
				Link:    "https://vk.com/wall-500_7",
				Likes:   &normalize.LikeSummary{Count: 4},
				Attachments: []normalize.Attachment{
					{Type: "photo", URL: "http://img/p.jpg"},
				},
				Comments: []normalize.Comment{
					{ID: 1, FromID: 9, Date: 1609462800, DateFormatted: "01.01.2021 01:00:00", Text: "great"},
				},
			},
		},
	}

	page, err := renderer.PostsHTML(archive)
	if err != nil {
		t.Fatalf("PostsHTML() error: %v", err)
	}

	html := string(page)
	if !strings.Contains(html, "Клуб") {
		t.Error("page is missing the community name")
	}
	if !strings.Contains(html, `id="search"`) {
		t.Error("page is missing the search box")
	}
	if !strings.Contains(html, `src="cached/p.jpg"`) {
		t.Error("photo was not localized")
	}
	if !strings.Contains(html, "http://img/p.jpg") {
		t.Error("original URL fallback is missing")
	}
	if !strings.Contains(html, "great") {
		t.Error("comment is missing")
	}
	if _, ok := localized["http://img/p.jpg"]; !ok {
		t.Error("localizer was not invoked for the photo")
	}
}
