// Package source holds the rate providers and the registry that selects one
// of them by name.
package source

import (
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

type Registry struct {
	mu      sync.RWMutex
	sources map[string]rate.Source
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]rate.Source),
	}
}

func (r *Registry) Register(s rate.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

func (r *Registry) Get(name string) (rate.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("rate source not found: %s", name)
	}
	return s, nil
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StatusError classifies a non-200 provider response. Server errors and rate
// limiting are transient; everything else is permanent.
func StatusError(provider string, status int) error {
	err := fmt.Errorf("%s returned HTTP %d", provider, status)
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return rate.Transient(err)
	}
	return err
}
