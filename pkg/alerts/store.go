package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/canchaya/canchaya/pkg/model"
	"github.com/canchaya/canchaya/pkg/storage"
)

// DefinitionStore persists alert definitions.
type DefinitionStore interface {
	List(ctx context.Context) ([]model.AlertDefinition, error)
	Get(ctx context.Context, id string) (*model.AlertDefinition, error)
	// Save inserts or replaces def by id after validating it.
	Save(ctx context.Context, def *model.AlertDefinition) error
	Delete(ctx context.Context, id string) error
	// Toggle flips Active and returns the updated definition.
	Toggle(ctx context.Context, id string) (*model.AlertDefinition, error)
	// MarkTriggered records a firing time without revalidating the definition.
	MarkTriggered(ctx context.Context, id string, at time.Time) error
}

// KVStore keeps every definition as one JSON array under storage.KeyAlerts.
type KVStore struct {
	kv  storage.KV
	key string
	now func() time.Time

	mu sync.Mutex
}

// NewKVStore creates a store on kv.
func NewKVStore(kv storage.KV) *KVStore {
	return &KVStore{kv: kv, key: storage.KeyAlerts, now: time.Now}
}

func (s *KVStore) List(ctx context.Context) ([]model.AlertDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *KVStore) Get(ctx context.Context, id string) (*model.AlertDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		if defs[i].ID == id {
			return &defs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) Save(ctx context.Context, def *model.AlertDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	defs, err := s.load(ctx)
	if err != nil {
		return err
	}

	def.UpdatedAt = s.now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = def.UpdatedAt
	}

	replaced := false
	for i := range defs {
		if defs[i].ID == def.ID {
			defs[i] = *def
			replaced = true
			break
		}
	}
	if !replaced {
		defs = append(defs, *def)
	}
	return s.store(ctx, defs)
}

func (s *KVStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range defs {
		if defs[i].ID == id {
			defs = append(defs[:i], defs[i+1:]...)
			return s.store(ctx, defs)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) Toggle(ctx context.Context, id string) (*model.AlertDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		if defs[i].ID == id {
			defs[i].Active = !defs[i].Active
			defs[i].UpdatedAt = s.now().UTC()
			if err := s.store(ctx, defs); err != nil {
				return nil, err
			}
			out := defs[i]
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range defs {
		if defs[i].ID == id {
			at = at.UTC()
			defs[i].LastTriggered = &at
			return s.store(ctx, defs)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *KVStore) load(ctx context.Context) ([]model.AlertDefinition, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read alert definitions: %w", err)
	}

	var defs []model.AlertDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("decode alert definitions: %w", err)
	}
	return defs, nil
}

func (s *KVStore) store(ctx context.Context, defs []model.AlertDefinition) error {
	if defs == nil {
		defs = []model.AlertDefinition{}
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return fmt.Errorf("encode alert definitions: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write alert definitions: %w", err)
	}
	return nil
}
