package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vkdump/pkg/export"
	"vkdump/pkg/logger"
)

func newTestRenderer(t *testing.T) *export.Renderer {
	t.Helper()
	renderer, err := export.NewRenderer(nil, logger.GetLogger())
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	return renderer
}

func writeArchive(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

func TestConvertPostsArchive(t *testing.T) {
	path := writeArchive(t, "posts.json", `{
		"type": "community_posts",
		"export_date": "01.06.2024 12:00:00",
		"community": {"id": 500, "name": "Клуб", "link": "https://vk.com/club500"},
		"posts_count": 1,
		"posts": [{"id": 1, "owner_id": -500, "text": "body", "link": "https://vk.com/wall-500_1"}]
	}`)

	if err := convertOne(newTestRenderer(t), path); err != nil {
		t.Fatalf("convertOne() error: %v", err)
	}

	page, err := os.ReadFile(strings.TrimSuffix(path, ".json") + ".html")
	if err != nil {
		t.Fatalf("page missing: %v", err)
	}
	if !strings.Contains(string(page), "Клуб") {
		t.Error("page is missing the community name")
	}
}

func TestConvertPostsArchiveRequiresCommunityField(t *testing.T) {
	path := writeArchive(t, "posts.json", `{
		"type": "community_posts",
		"posts_count": 1,
		"posts": [{"id": 1, "owner_id": -500, "text": "body"}]
	}`)

	err := convertOne(newTestRenderer(t), path)
	if err == nil {
		t.Fatal("expected error for archive without a community field")
	}
	if !strings.Contains(err.Error(), "community") {
		t.Errorf("error = %q, want mention of the missing field", err)
	}
	if _, statErr := os.Stat(strings.TrimSuffix(path, ".json") + ".html"); statErr == nil {
		t.Error("page was written despite invalid archive")
	}
}

func TestConvertPostsArchiveRequiresPostsField(t *testing.T) {
	path := writeArchive(t, "posts.json", `{
		"type": "community_posts",
		"community": {"id": 500, "name": "Клуб"}
	}`)

	err := convertOne(newTestRenderer(t), path)
	if err == nil {
		t.Fatal("expected error for archive without a posts field")
	}
	if !strings.Contains(err.Error(), "posts") {
		t.Errorf("error = %q, want mention of the missing field", err)
	}
}

func TestConvertPostsArchiveAcceptsNullCommunity(t *testing.T) {
	// The dumper writes "community": null when the profile fetch degraded
	path := writeArchive(t, "posts.json", `{
		"type": "community_posts",
		"community": null,
		"posts_count": 0,
		"posts": []
	}`)

	if err := convertOne(newTestRenderer(t), path); err != nil {
		t.Fatalf("convertOne() error: %v", err)
	}
}

func TestConvertDialogArchive(t *testing.T) {
	path := writeArchive(t, "dialog.json", `{
		"title": "Ivan Petrov",
		"peer_id": 101,
		"type": "user",
		"messages": [{"id": 1, "from_id": 101, "date": 100, "date_formatted": "01.01.1970 00:01:40", "text": "hi"}]
	}`)

	if err := convertOne(newTestRenderer(t), path); err != nil {
		t.Fatalf("convertOne() error: %v", err)
	}

	page, err := os.ReadFile(strings.TrimSuffix(path, ".json") + ".html")
	if err != nil {
		t.Fatalf("page missing: %v", err)
	}
	if !strings.Contains(string(page), "Ivan Petrov") {
		t.Error("page is missing the dialog title")
	}
}

func TestConvertRejectsEmptyDialog(t *testing.T) {
	path := writeArchive(t, "empty.json", `{}`)

	if err := convertOne(newTestRenderer(t), path); err == nil {
		t.Fatal("expected error for empty archive")
	}
}

func TestResolveArchivePaths(t *testing.T) {
	paths, err := resolveArchivePaths([]string{"a.json", "b.json"}, strings.NewReader(""))
	if err != nil {
		t.Fatalf("resolveArchivePaths() error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "a.json" {
		t.Errorf("paths = %v, want arguments passed through", paths)
	}

	paths, err = resolveArchivePaths(nil, strings.NewReader("output/posts.json\n"))
	if err != nil {
		t.Fatalf("resolveArchivePaths() error: %v", err)
	}
	if len(paths) != 1 || paths[0] != "output/posts.json" {
		t.Errorf("paths = %v, want prompted path", paths)
	}

	if _, err := resolveArchivePaths(nil, strings.NewReader("\n")); err == nil {
		t.Error("expected error for blank prompt input")
	}
}
