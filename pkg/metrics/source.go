// Package metrics polls metric values from a source and feeds them to the
// alert evaluator.
package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// Source produces the current value of each metric it knows.
type Source interface {
	Fetch(ctx context.Context) (map[string]float64, error)
}

// StaticSource returns values set in code. Safe for concurrent use.
type StaticSource struct {
	mu     sync.Mutex
	values map[string]float64
}

func NewStaticSource(values map[string]float64) *StaticSource {
	s := &StaticSource{values: make(map[string]float64)}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Set updates one metric.
func (s *StaticSource) Set(metricID string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[metricID] = value
}

func (s *StaticSource) Fetch(context.Context) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

// HTTPSource reads metrics from a JSON endpoint. The document at Path (a
// gjson path, empty for the root) is either an object of metric -> number or
// an array of {"id": ..., "value": ...} items.
type HTTPSource struct {
	url    string
	path   string
	token  string
	client *http.Client
}

// NewHTTPSource creates a source. token, when set, is sent as a bearer token.
func NewHTTPSource(url, path, token string) *HTTPSource {
	return &HTTPSource{
		url:   url,
		path:  path,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create metrics request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metrics endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read metrics response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("metrics endpoint returned invalid JSON")
	}

	doc := gjson.ParseBytes(body)
	if s.path != "" {
		doc = doc.Get(s.path)
		if !doc.Exists() {
			return nil, fmt.Errorf("metrics path %q not found", s.path)
		}
	}
	return parseValues(doc), nil
}

func parseValues(doc gjson.Result) map[string]float64 {
	out := make(map[string]float64)
	switch {
	case doc.IsObject():
		doc.ForEach(func(key, value gjson.Result) bool {
			if v, ok := number(value); ok {
				out[key.String()] = v
			}
			return true
		})
	case doc.IsArray():
		doc.ForEach(func(_, item gjson.Result) bool {
			id := item.Get("id").String()
			if id == "" {
				return true
			}
			if v, ok := number(item.Get("value")); ok {
				out[id] = v
			}
			return true
		})
	}
	return out
}

func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		v, err := strconv.ParseFloat(r.Str, 64)
		return v, err == nil
	default:
		return 0, false
	}
}
