package source

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

type stubSource string

func (s stubSource) Name() string { return string(s) }
func (s stubSource) Fetch(context.Context, rate.Pair, time.Time) (float64, error) {
	return 1, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(stubSource("yahoo"))
	r.Register(stubSource("exchangerates"))

	got, err := r.Get("yahoo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name() != "yahoo" {
		t.Errorf("expected yahoo, got %s", got.Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown source")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "exchangerates" || names[1] != "yahoo" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		err := StatusError("test", tt.status)
		if got := errors.Is(err, rate.ErrTransientFetch); got != tt.transient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, got, tt.transient)
		}
	}
}
