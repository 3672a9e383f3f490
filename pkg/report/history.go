package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/canchaya/canchaya/pkg/model"
	"github.com/canchaya/canchaya/pkg/storage"
)

// DefaultHistoryLimit caps how many report records are kept.
const DefaultHistoryLimit = 50

// History keeps generated-report records, newest first.
type History struct {
	kv    storage.KV
	key   string
	limit int

	mu sync.Mutex
}

func NewHistory(kv storage.KV) *History {
	return &History{kv: kv, key: storage.KeyReportHistory, limit: DefaultHistoryLimit}
}

// Add prepends rec and drops the oldest records beyond the limit.
func (h *History) Add(ctx context.Context, rec model.ReportRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	recs, err := h.load(ctx)
	if err != nil {
		return err
	}
	recs = append([]model.ReportRecord{rec}, recs...)
	if len(recs) > h.limit {
		recs = recs[:h.limit]
	}

	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode report history: %w", err)
	}
	if err := h.kv.Set(ctx, h.key, raw); err != nil {
		return fmt.Errorf("write report history: %w", err)
	}
	return nil
}

// List returns the records, newest first.
func (h *History) List(ctx context.Context) ([]model.ReportRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Clear removes every record.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kv.Delete(ctx, h.key)
}

func (h *History) load(ctx context.Context) ([]model.ReportRecord, error) {
	raw, err := h.kv.Get(ctx, h.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report history: %w", err)
	}
	var recs []model.ReportRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode report history: %w", err)
	}
	return recs, nil
}
