package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rickgao/textsync/internal/metrics"
	"github.com/rickgao/textsync/internal/store"
)

// Errors
var (
	ErrEmptyName   = errors.New("notebook name is empty")
	ErrInvalidName = errors.New("notebook name is invalid")
	ErrExists      = errors.New("notebook already exists")
	ErrLimit       = errors.New("notebook limit reached")
	ErrNotFound    = errors.New("notebook not found")
)

// Directory maps notebook names to buffers in a Store and tracks the active one.
type Directory struct {
	store   *store.Store
	max     int
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	names  []string // insertion order
	known  map[string]struct{}
	active string
}

// New creates an empty Directory holding at most max notebooks.
func New(st *store.Store, max int, m *metrics.Metrics, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Directory{
		store:   st,
		max:     max,
		logger:  logger,
		metrics: m,
		known:   make(map[string]struct{}),
	}
}

// Init creates the default notebook (if absent) and makes it active.
func (d *Directory) Init(ctx context.Context, defaultName string) error {
	if _, err := d.Create(ctx, defaultName); err != nil && !errors.Is(err, ErrExists) {
		return fmt.Errorf("create default notebook: %w", err)
	}
	return d.Switch(strings.TrimSpace(defaultName))
}

// Restore registers notebooks found in durable storage, up to the cap.
// It returns how many were added.
func (d *Directory) Restore(ctx context.Context) (int, error) {
	names, err := d.store.Names(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, name := range names {
		if d.has(name) {
			continue
		}
		_, err := d.Create(ctx, name)
		switch {
		case err == nil:
			added++
		case errors.Is(err, ErrLimit):
			d.logger.Warn("notebook limit reached during restore",
				"limit", d.max,
				"skipped", name,
			)
			return added, nil
		default:
			d.logger.Warn("skipping stored notebook", "name", name, "error", err)
		}
	}
	return added, nil
}

// Create adds a new empty notebook. The name is trimmed of surrounding
// whitespace; the trimmed name is returned.
func (d *Directory) Create(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkCreateLocked(name); err != nil {
		d.metrics.NotebookRejections.WithLabelValues(rejectReason(err)).Inc()
		return name, err
	}

	if _, err := d.store.Open(ctx, name); err != nil {
		d.metrics.NotebookRejections.WithLabelValues("storage").Inc()
		return name, fmt.Errorf("open notebook: %w", err)
	}

	d.names = append(d.names, name)
	d.known[name] = struct{}{}
	d.metrics.Notebooks.Set(float64(len(d.names)))

	d.logger.Info("notebook created", "name", name, "count", len(d.names))
	return name, nil
}

// checkCreateLocked validates a create request (caller must hold the lock).
func (d *Directory) checkCreateLocked(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := d.known[name]; ok {
		return ErrExists
	}
	if len(d.names) >= d.max {
		return ErrLimit
	}
	if err := store.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}

// Switch makes name the active notebook.
func (d *Directory) Switch(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.known[name]; !ok {
		return ErrNotFound
	}
	d.active = name
	return nil
}

func (d *Directory) has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.known[name]
	return ok
}

// Active returns the active notebook name.
func (d *Directory) Active() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// List returns all notebook names in creation order.
func (d *Directory) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of notebooks.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}

// Max returns the notebook cap.
func (d *Directory) Max() int {
	return d.max
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyName):
		return "empty"
	case errors.Is(err, ErrExists):
		return "exists"
	case errors.Is(err, ErrLimit):
		return "limit"
	case errors.Is(err, ErrInvalidName):
		return "invalid"
	default:
		return "other"
	}
}
