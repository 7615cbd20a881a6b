package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNothingPersisted is returned by a Persister that has no stored catalog yet.
var ErrNothingPersisted = errors.New("no persisted catalog")

// Store provides access to the service catalog.
type Store interface {
	Snapshot(ctx context.Context) (Catalog, error)
	Replace(ctx context.Context, c Catalog) error
	AddItem(ctx context.Context, item Item) (int, error)
	UpdateItem(ctx context.Context, index int, patch ItemPatch) (Item, error)
	RemoveItem(ctx context.Context, index int) error
	SetProjectName(ctx context.Context, name string) error
}

// ItemPatch carries the fields of a service to change; nil fields are kept.
type ItemPatch struct {
	Name  *string
	Price *float64
}

// Persister saves and restores a catalog document.
type Persister interface {
	Load(ctx context.Context) (Catalog, error)
	Save(ctx context.Context, c Catalog) error
}

// MemoryStore keeps the catalog in memory and guards access with a RWMutex.
// When a Persister is configured every mutation is written through; write
// failures are logged and otherwise ignored.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog Catalog

	persister Persister
	logger    *zap.Logger
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithPersister enables write-through persistence.
func WithPersister(p Persister) Option {
	return func(s *MemoryStore) {
		s.persister = p
	}
}

// WithLogger sets the logger used to report persistence problems.
func WithLogger(logger *zap.Logger) Option {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMemoryStore initialises storage with a copy of the default catalog.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		catalog: DefaultCatalog(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory catalog with the persisted one, if any.
// Missing or malformed content leaves the current catalog in place.
func (s *MemoryStore) Load(ctx context.Context) {
	if s.persister == nil {
		return
	}

	loaded, err := s.persister.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNothingPersisted) {
			s.logger.Debug("no persisted catalog, using defaults")
			return
		}
		s.logger.Warn("failed to load catalog, using defaults", zap.Error(err))
		return
	}

	normalized, err := normalizeCatalog(loaded)
	if err != nil {
		s.logger.Warn("persisted catalog is invalid, using defaults", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.catalog = normalized
	s.mu.Unlock()

	s.logger.Info("catalog loaded",
		zap.String("project", normalized.ProjectName),
		zap.Int("services", len(normalized.Services)),
	)
}

// Snapshot returns a defensive copy of the current catalog.
func (s *MemoryStore) Snapshot(_ context.Context) (Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.catalog.Clone(), nil
}

// Replace validates and stores a whole catalog.
func (s *MemoryStore) Replace(ctx context.Context, c Catalog) error {
	normalized, err := normalizeCatalog(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog = normalized
	s.persist(ctx)
	return nil
}

// AddItem appends a service and returns its index. An empty name becomes a
// placeholder so that a blank row can be added and edited later.
func (s *MemoryStore) AddItem(ctx context.Context, item Item) (int, error) {
	if strings.TrimSpace(item.Name) == "" {
		item.Name = newServiceName
	}
	normalized, err := normalizeItem(item)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.Services = append(s.catalog.Services, normalized)
	s.persist(ctx)
	return len(s.catalog.Services) - 1, nil
}

// UpdateItem applies a patch to the service at index.
func (s *MemoryStore) UpdateItem(ctx context.Context, index int, patch ItemPatch) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.catalog.Services) {
		return Item{}, fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}

	item := s.catalog.Services[index]
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	normalized, err := normalizeItem(item)
	if err != nil {
		return Item{}, err
	}

	s.catalog.Services[index] = normalized
	s.persist(ctx)
	return normalized, nil
}

// RemoveItem deletes the service at index; later services shift down.
func (s *MemoryStore) RemoveItem(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.catalog.Services) {
		return fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}

	s.catalog.Services = append(s.catalog.Services[:index], s.catalog.Services[index+1:]...)
	s.persist(ctx)
	return nil
}

// SetProjectName renames the project; an empty name restores the default.
func (s *MemoryStore) SetProjectName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultProjectName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog.ProjectName = name
	s.persist(ctx)
	return nil
}

// persist must be called with the write lock held.
func (s *MemoryStore) persist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, s.catalog.Clone()); err != nil {
		s.logger.Warn("failed to persist catalog", zap.Error(err))
	}
}
