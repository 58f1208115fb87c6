package sentiment

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fosspulse/fosspulse/internal/model"
	"github.com/fosspulse/fosspulse/internal/store"
)

func writeAnnotations(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "annotations.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestFileSource(t *testing.T) {
	path := writeAnnotations(t,
		`{"commentId":"comment-1","sentence":"Thanks, this works!","label":"positive"}`,
		`{"commentId":"comment-1","sentence":"One nit below.","label":"neutral"}`,
		`{"commentId":"comment-2","sentence":"This broke everything.","label":"very_negative"}`,
	)

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	if src.Len() != 2 {
		t.Errorf("Len() = %d, want 2", src.Len())
	}

	anns, err := src.Annotations(context.Background(), "comment-1")
	if err != nil {
		t.Fatalf("Annotations() error = %v", err)
	}
	if len(anns) != 2 {
		t.Fatalf("annotations = %d, want 2", len(anns))
	}
	if anns[0].Label != Positive || anns[1].Label != Neutral {
		t.Errorf("labels = %s, %s", anns[0].Label, anns[1].Label)
	}

	// Unknown comments return nil, not an error.
	anns, err = src.Annotations(context.Background(), "comment-404")
	if err != nil {
		t.Fatalf("Annotations() error = %v", err)
	}
	if anns != nil {
		t.Errorf("annotations for unknown comment = %v, want nil", anns)
	}
}

func TestFileSourceSkipsBadLines(t *testing.T) {
	path := writeAnnotations(t,
		`{"commentId":"comment-1","sentence":"ok","label":"positive"}`,
		`not json at all`,
		`{"commentId":"comment-2","sentence":"what","label":"enthusiastic"}`,
		`{"sentence":"no id","label":"neutral"}`,
	)

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	if src.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (bad lines skipped)", src.Len())
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("NewFileSource() on a missing file should error")
	}
}

func TestLabelValid(t *testing.T) {
	for _, label := range AllLabels {
		if !label.Valid() {
			t.Errorf("%s reported invalid", label)
		}
	}
	if Label("enthusiastic").Valid() {
		t.Error("unknown label reported valid")
	}
}

func TestExportComments(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	snap := &store.Snapshot{
		Subjects: map[int]model.Subject{1: {Number: 1, Author: "alice"}},
		Events: []model.RawEvent{
			{
				ID: "issue-1", Kind: model.KindIssueOpened, Actor: "alice",
				Subject: 1, CreatedAt: base,
			},
			{
				ID: "comment-10", Kind: model.KindIssueComment, Actor: "bob",
				Subject: 1, CreatedAt: base.Add(time.Hour),
				Payload: &model.CommentPayload{Body: "have you tried rebooting"},
			},
			{
				ID: "review-comment-11", Kind: model.KindPRReviewComment, Actor: "carol",
				Subject: 1, CreatedAt: base.Add(2 * time.Hour),
				Payload: &model.CommentPayload{Body: "nit: rename this"},
			},
		},
	}

	var buf bytes.Buffer
	count, err := ExportComments(snap, &buf)
	if err != nil {
		t.Fatalf("ExportComments() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (opened event is not a comment)", count)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"id":"comment-10"`) {
		t.Errorf("first line = %s", lines[0])
	}
	if !strings.Contains(lines[0], `"createdAt":"2024-03-01T11:00:00Z"`) {
		t.Errorf("first line missing timestamp: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"nit: rename this"`) {
		t.Errorf("second line = %s", lines[1])
	}
}
