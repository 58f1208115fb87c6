// Package sentiment is the boundary to the external comment-tone scorer.
// Scoring itself happens outside this program: comment bodies are dumped
// for the scorer, and its per-sentence labels are read back as
// annotations keyed by comment ID.
package sentiment

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fosspulse/fosspulse/internal/log"
	"github.com/fosspulse/fosspulse/internal/store"
)

// Label is a discrete sentiment class assigned to one sentence.
type Label string

const (
	VeryNegative Label = "very_negative"
	Negative     Label = "negative"
	Neutral      Label = "neutral"
	Positive     Label = "positive"
	VeryPositive Label = "very_positive"
)

// AllLabels contains all valid sentiment labels.
var AllLabels = []Label{VeryNegative, Negative, Neutral, Positive, VeryPositive}

// Valid reports whether the label is one of the known classes.
func (l Label) Valid() bool {
	for _, known := range AllLabels {
		if l == known {
			return true
		}
	}
	return false
}

// Annotation is one scored sentence of one comment.
type Annotation struct {
	CommentID string `json:"commentId"`
	Sentence  string `json:"sentence"`
	Label     Label  `json:"label"`
}

// Source supplies sentiment annotations for stored comments.
type Source interface {
	// Annotations returns the scored sentences of one comment, or nil
	// when the comment has not been scored.
	Annotations(ctx context.Context, commentID string) ([]Annotation, error)
}

// FileSource reads annotations from a JSONL file produced by the external
// scorer, one Annotation per line.
type FileSource struct {
	byComment map[string][]Annotation
}

// Ensure FileSource implements Source interface.
var _ Source = (*FileSource)(nil)

// NewFileSource loads an annotations file into memory. Malformed lines
// and lines with unknown labels are skipped.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening annotations: %w", err)
	}
	defer func() { _ = f.Close() }()

	src := &FileSource{byComment: make(map[string][]Annotation)}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a Annotation
		if err := json.Unmarshal(line, &a); err != nil {
			log.Debug("skipping malformed annotation line", "error", err)
			continue
		}
		if a.CommentID == "" || !a.Label.Valid() {
			log.Debug("skipping annotation with missing id or unknown label",
				"comment", a.CommentID, "label", string(a.Label))
			continue
		}
		src.byComment[a.CommentID] = append(src.byComment[a.CommentID], a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading annotations: %w", err)
	}
	return src, nil
}

// Annotations returns the scored sentences of one comment.
func (s *FileSource) Annotations(_ context.Context, commentID string) ([]Annotation, error) {
	return s.byComment[commentID], nil
}

// Len returns the number of annotated comments.
func (s *FileSource) Len() int {
	return len(s.byComment)
}

// CommentRecord is one comment prepared for the external scorer.
type CommentRecord struct {
	ID        string    `json:"id"`
	Subject   int       `json:"subject"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"createdAt"`
	Body      string    `json:"body"`
}

// ExportComments dumps every stored comment as JSONL for the external
// scrubber and scorer. Events arrive in snapshot order, so the output is
// deterministic for an unchanged store.
func ExportComments(snap *store.Snapshot, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0
	for i := range snap.Events {
		ev := &snap.Events[i]
		if !ev.IsComment() {
			continue
		}
		record := CommentRecord{
			ID:        ev.ID,
			Subject:   ev.Subject,
			Actor:     ev.Actor,
			CreatedAt: ev.CreatedAt,
			Body:      ev.Comment(),
		}
		if err := enc.Encode(&record); err != nil {
			return count, fmt.Errorf("writing comment %s: %w", ev.ID, err)
		}
		count++
	}
	return count, nil
}
