package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rickgao/textsync/internal/metrics"
	"github.com/rickgao/textsync/internal/stats"
)

// Errors
var (
	ErrInvalidName = errors.New("invalid buffer name")
)

// MaxNameLength bounds buffer names in bytes.
const MaxNameLength = 128

// Persister stores whole buffer records durably, keyed by buffer name.
type Persister interface {
	// Load returns the stored content; found is false when no record exists.
	Load(ctx context.Context, name string) (content string, found bool, err error)

	// Save replaces the stored record for name with content.
	Save(ctx context.Context, name, content string) error

	// List returns the names of all stored records.
	List(ctx context.Context) ([]string, error)

	// Backend names the storage kind for logs and metrics.
	Backend() string
}

// Buffer is a named block of shared text.
type Buffer struct {
	Name      string
	Content   string
	CreatedAt time.Time
}

// WriteResult reports the outcome of a Write.
type WriteResult struct {
	Length    int         // Stored length in characters
	Truncated bool        // True if content was clipped to MaxTextSize
	Stats     stats.Stats // Statistics of the stored content
	Err       error       // Persistence failure; in-memory content is still updated
}

// Store owns the named buffers.
type Store struct {
	maxTextSize int
	persister   Persister
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu      sync.RWMutex
	buffers map[string]*Buffer
}

// New creates a Store that clips content to maxTextSize characters.
func New(maxTextSize int, persister Persister, m *metrics.Metrics, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Store{
		maxTextSize: maxTextSize,
		persister:   persister,
		logger:      logger,
		metrics:     m,
		buffers:     make(map[string]*Buffer),
	}
}

// MaxTextSize returns the per-buffer character cap.
func (s *Store) MaxTextSize() int {
	return s.maxTextSize
}

// Open makes name known to the store. Existing durable content is loaded
// as-is; when none exists an empty record is persisted. created reports
// whether the buffer was new to this store.
func (s *Store) Open(ctx context.Context, name string) (created bool, err error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	s.mu.RLock()
	_, ok := s.buffers[name]
	s.mu.RUnlock()
	if ok {
		return false, nil
	}

	content, found, err := s.persister.Load(ctx, name)
	if err != nil {
		s.metrics.PersistErrors.WithLabelValues(s.persister.Backend()).Inc()
		return false, fmt.Errorf("load %q: %w", name, err)
	}
	if !found {
		if err := s.persist(ctx, name, ""); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buffers[name]; ok {
		return false, nil
	}
	s.buffers[name] = &Buffer{Name: name, Content: content, CreatedAt: time.Now()}

	s.logger.Debug("buffer opened",
		"name", name,
		"restored", found,
		"chars", utf8.RuneCountInString(content),
	)
	return true, nil
}

// Read returns the current content of name, or "" if it has none.
func (s *Store) Read(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.buffers[name]; ok {
		return b.Content
	}
	return ""
}

// Get returns a copy of the named buffer.
func (s *Store) Get(name string) (Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buffers[name]
	if !ok {
		return Buffer{}, false
	}
	return *b, true
}

// Write replaces the content of name, clipping it to MaxTextSize characters,
// persists it synchronously and returns the stored length and statistics.
// Content is never rejected.
func (s *Store) Write(ctx context.Context, name, content string) WriteResult {
	content, truncated := Truncate(content, s.maxTextSize)
	if truncated {
		s.metrics.Truncations.Inc()
	}

	s.mu.Lock()
	b, ok := s.buffers[name]
	if !ok {
		b = &Buffer{Name: name, CreatedAt: time.Now()}
		s.buffers[name] = b
	}
	b.Content = content
	s.mu.Unlock()

	st := stats.Compute(content)
	result := WriteResult{
		Length:    st.TotalChars,
		Truncated: truncated,
		Stats:     st,
	}

	if err := s.persist(ctx, name, content); err != nil {
		s.logger.Error("persist buffer failed", "name", name, "error", err)
		result.Err = err
	}

	return result
}

// Names returns the buffer names present in durable storage.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	names, err := s.persister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s records: %w", s.persister.Backend(), err)
	}
	return names, nil
}

func (s *Store) persist(ctx context.Context, name, content string) error {
	backend := s.persister.Backend()
	start := time.Now()
	err := s.persister.Save(ctx, name, content)
	s.metrics.PersistDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.PersistErrors.WithLabelValues(backend).Inc()
		return fmt.Errorf("save %q: %w", name, err)
	}
	return nil
}

// Truncate clips s to at most max characters without splitting a character.
func Truncate(s string, max int) (string, bool) {
	// A string of at most max bytes has at most max characters.
	if len(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// ValidateName rejects names that are empty or could escape a storage
// directory when used as part of a file name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: contains a path separator", ErrInvalidName)
	case name == "." || name == ".." || strings.Contains(name, ".."):
		return fmt.Errorf("%w: contains ..", ErrInvalidName)
	}
	return nil
}
