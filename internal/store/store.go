// Package store persists harvested subjects and events as JSON Lines,
// one directory per repository. Files are append-only: writing a record
// whose ID already exists adds a line, and readers resolve duplicates
// last-record-wins, so re-crawling the same data never corrupts history.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fosspulse/fosspulse/internal/model"
)

// ErrWrite marks a failed store write. Crawls treat these as fatal because
// continuing would silently drop observed history.
var ErrWrite = errors.New("store write failed")

// lockStripes is the number of mutexes event writes are striped over.
const lockStripes = 64

// maxLineBytes bounds a single stored record. Comment bodies can exceed
// bufio.Scanner's default token size.
const maxLineBytes = 4 * 1024 * 1024

// Store persists the harvested history of one repository under
// <root>/<owner>/<repo>/: a subjects.jsonl file plus one
// events/<number>.jsonl file per subject.
type Store struct {
	dir string

	subjectsMu sync.Mutex
	eventMu    [lockStripes]sync.Mutex
}

// Open prepares the store directory for one repository.
func Open(root, owner, repo string) (*Store, error) {
	dir := filepath.Join(root, owner, repo)
	if err := os.MkdirAll(filepath.Join(dir, "events"), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %w", ErrWrite, dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the repository's storage directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) subjectsPath() string {
	return filepath.Join(s.dir, "subjects.jsonl")
}

func (s *Store) eventsPath(number int) string {
	return filepath.Join(s.dir, "events", strconv.Itoa(number)+".jsonl")
}

// lockFor returns the stripe guarding one subject's event file. Writers to
// different subjects proceed in parallel; same-subject writers serialize.
func (s *Store) lockFor(number int) *sync.Mutex {
	return &s.eventMu[number%lockStripes]
}

// UpsertSubject records a subject. Re-upserting the same number replaces
// the stored record without duplicating it.
func (s *Store) UpsertSubject(subject model.Subject) error {
	s.subjectsMu.Lock()
	defer s.subjectsMu.Unlock()
	if err := appendLine(s.subjectsPath(), subject); err != nil {
		return fmt.Errorf("%w: subject %d: %w", ErrWrite, subject.Number, err)
	}
	return nil
}

// UpsertEvent records an event under its subject. Re-upserting the same
// event ID replaces the stored record without duplicating it.
func (s *Store) UpsertEvent(ev model.RawEvent) error {
	lock := s.lockFor(ev.Subject)
	lock.Lock()
	defer lock.Unlock()
	if err := appendLine(s.eventsPath(ev.Subject), &ev); err != nil {
		return fmt.Errorf("%w: event %s: %w", ErrWrite, ev.ID, err)
	}
	return nil
}

// appendLine appends one JSON record to a file. The encoder emits the
// record and its newline in a single write, so a crash leaves at most one
// truncated line, which readers skip.
func appendLine(path string, v any) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Subjects returns every stored subject, ascending by number.
func (s *Store) Subjects() ([]model.Subject, error) {
	s.subjectsMu.Lock()
	defer s.subjectsMu.Unlock()
	return s.readSubjects()
}

func (s *Store) readSubjects() ([]model.Subject, error) {
	byNumber := make(map[int]model.Subject)
	err := scanLines(s.subjectsPath(), func(line []byte) {
		var subject model.Subject
		if err := json.Unmarshal(line, &subject); err != nil {
			return // skip malformed lines
		}
		byNumber[subject.Number] = subject
	})
	if err != nil {
		return nil, err
	}

	subjects := make([]model.Subject, 0, len(byNumber))
	for _, subject := range byNumber {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].Number < subjects[j].Number
	})
	return subjects, nil
}

// HasSubject reports whether a subject has been recorded.
func (s *Store) HasSubject(number int) (bool, error) {
	subjects, err := s.Subjects()
	if err != nil {
		return false, err
	}
	for i := range subjects {
		if subjects[i].Number == number {
			return true, nil
		}
	}
	return false, nil
}

// Events returns the stored events of one subject, ordered by creation
// time with the event ID as tiebreaker.
func (s *Store) Events(number int) ([]model.RawEvent, error) {
	lock := s.lockFor(number)
	lock.Lock()
	defer lock.Unlock()
	return s.readEvents(number)
}

func (s *Store) readEvents(number int) ([]model.RawEvent, error) {
	byID := make(map[string]model.RawEvent)
	err := scanLines(s.eventsPath(number), func(line []byte) {
		var ev model.RawEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return // skip malformed lines
		}
		byID[ev.ID] = ev
	})
	if err != nil {
		return nil, err
	}

	events := make([]model.RawEvent, 0, len(byID))
	for _, ev := range byID {
		events = append(events, ev)
	}
	sortEvents(events)
	return events, nil
}

func sortEvents(events []model.RawEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}

// scanLines streams the lines of a JSONL file. A missing file is not an
// error: partial population is the normal state of a store.
func scanLines(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	return scanner.Err()
}

// Snapshot is an immutable read of everything stored for a repository.
// Events are ordered by (CreatedAt, ID) across all subjects.
type Snapshot struct {
	Subjects map[int]model.Subject
	Events   []model.RawEvent
}

// Snapshot reads the whole store. The result is what classification and
// reporting operate on; it never observes a half-written record.
func (s *Store) Snapshot() (*Snapshot, error) {
	subjects, err := s.Subjects()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Subjects: make(map[int]model.Subject, len(subjects))}
	for _, subject := range subjects {
		snap.Subjects[subject.Number] = subject
		events, err := s.Events(subject.Number)
		if err != nil {
			return nil, err
		}
		snap.Events = append(snap.Events, events...)
	}

	// Event files whose subject record is missing (for example after a
	// crash between the two writes) still belong in the snapshot; the
	// classifier decides how to treat them.
	orphans, err := s.orphanEventFiles(snap.Subjects)
	if err != nil {
		return nil, err
	}
	for _, number := range orphans {
		events, err := s.Events(number)
		if err != nil {
			return nil, err
		}
		snap.Events = append(snap.Events, events...)
	}

	sortEvents(snap.Events)
	return snap, nil
}

// orphanEventFiles lists event files that have no subject record.
func (s *Store) orphanEventFiles(known map[int]model.Subject) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "events"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var orphans []int
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".jsonl" {
			continue
		}
		number, err := strconv.Atoi(name[:len(name)-len(".jsonl")])
		if err != nil || number <= 0 {
			// Subject numbers start at 1; anything else is not ours and
			// would index the lock stripes out of range.
			continue
		}
		if _, ok := known[number]; !ok {
			orphans = append(orphans, number)
		}
	}
	sort.Ints(orphans)
	return orphans, nil
}

// Stats summarizes a repository store.
type Stats struct {
	Subjects  int
	Issues    int
	Pulls     int
	Events    int
	Kinds     map[model.EventKind]int
	Actors    int
	Oldest    time.Time
	Newest    time.Time
	SizeBytes int64
}

// Stats walks the store and aggregates counts for inspection commands.
func (s *Store) Stats() (*Stats, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Subjects: len(snap.Subjects),
		Events:   len(snap.Events),
		Kinds:    make(map[model.EventKind]int),
	}
	for _, subject := range snap.Subjects {
		if subject.IsPull() {
			stats.Pulls++
		} else {
			stats.Issues++
		}
	}

	actors := make(map[string]struct{})
	for i := range snap.Events {
		ev := &snap.Events[i]
		stats.Kinds[ev.Kind]++
		actors[ev.Actor] = struct{}{}
		if stats.Oldest.IsZero() || ev.CreatedAt.Before(stats.Oldest) {
			stats.Oldest = ev.CreatedAt
		}
		if ev.CreatedAt.After(stats.Newest) {
			stats.Newest = ev.CreatedAt
		}
	}
	stats.Actors = len(actors)

	err = filepath.Walk(s.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			stats.SizeBytes += info.Size()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Compact rewrites every file keeping only the latest record per ID.
// Append-only duplicates accumulate across re-crawls; compaction reclaims
// the space without changing what readers observe.
func (s *Store) Compact() error {
	s.subjectsMu.Lock()
	subjects, err := s.readSubjects()
	if err != nil {
		s.subjectsMu.Unlock()
		return err
	}
	if len(subjects) > 0 {
		if err := writeAll(s.subjectsPath(), len(subjects), func(enc *json.Encoder, i int) error {
			return enc.Encode(subjects[i])
		}); err != nil {
			s.subjectsMu.Unlock()
			return fmt.Errorf("%w: compacting subjects: %w", ErrWrite, err)
		}
	}
	s.subjectsMu.Unlock()

	known := make(map[int]model.Subject, len(subjects))
	numbers := make([]int, 0, len(subjects))
	for _, subject := range subjects {
		known[subject.Number] = subject
		numbers = append(numbers, subject.Number)
	}
	orphans, err := s.orphanEventFiles(known)
	if err != nil {
		return err
	}
	numbers = append(numbers, orphans...)

	for _, number := range numbers {
		if err := s.compactEvents(number); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) compactEvents(number int) error {
	lock := s.lockFor(number)
	lock.Lock()
	defer lock.Unlock()

	events, err := s.readEvents(number)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := writeAll(s.eventsPath(number), len(events), func(enc *json.Encoder, i int) error {
		return enc.Encode(&events[i])
	}); err != nil {
		return fmt.Errorf("%w: compacting events of %d: %w", ErrWrite, number, err)
	}
	return nil
}

// writeAll writes records to a file atomically via a temp file rename.
func writeAll(path string, n int, encode func(enc *json.Encoder, i int) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := encode(enc, i); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}
