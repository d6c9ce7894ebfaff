package rate

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	domain "github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStore_PutAndLookup(t *testing.T) {
	mr, store := setupRedis(t)
	ctx := context.Background()

	for _, p := range []domain.Point{fetched(2, 0.91), fetched(4, 0.93)} {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	if got := mr.HGet("fxtrend:rates:USDEUR", "2024-01-02"); got != "0.91" {
		t.Errorf("expected raw hash field 0.91, got %q", got)
	}

	got, err := store.Lookup(ctx, usdEUR, domain.DateRange{Start: day(1), End: day(4)})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if p := got[day(4)]; p.Rate != 0.93 || p.Origin != domain.OriginCached {
		t.Errorf("unexpected point: %+v", p)
	}
}

func TestRedisStore_PutIdempotentAndCorrects(t *testing.T) {
	mr, store := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Put(ctx, fetched(2, 0.91)); err != nil {
			t.Fatal(err)
		}
	}
	fields, err := mr.HKeys("fxtrend:rates:USDEUR")
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 1 {
		t.Errorf("expected 1 field, got %d", len(fields))
	}

	if err := store.Put(ctx, fetched(2, 0.9123)); err != nil {
		t.Fatal(err)
	}
	got, err := store.Lookup(ctx, usdEUR, domain.DateRange{Start: day(2), End: day(2)})
	if err != nil {
		t.Fatal(err)
	}
	if got[day(2)].Rate != 0.9123 {
		t.Errorf("expected corrected rate, got %f", got[day(2)].Rate)
	}
}

func TestRedisStore_RejectsFilled(t *testing.T) {
	mr, store := setupRedis(t)

	p := fetched(2, 0.91)
	p.Origin = domain.OriginFilled
	if err := store.Put(context.Background(), p); !errors.Is(err, domain.ErrFilledPoint) {
		t.Fatalf("expected ErrFilledPoint, got %v", err)
	}
	if mr.Exists("fxtrend:rates:USDEUR") {
		t.Error("filled point reached redis")
	}
}

func TestRedisStore_Pairs(t *testing.T) {
	_, store := setupRedis(t)
	ctx := context.Background()

	for _, p := range []domain.Point{fetched(3, 0.91), fetched(1, 0.9), fetched(9, 0.92)} {
		if err := store.Put(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	cov, err := store.Pairs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cov) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(cov))
	}
	if cov[0].Points != 3 || !cov[0].First.Equal(day(1)) || !cov[0].Last.Equal(day(9)) {
		t.Errorf("unexpected coverage: %+v", cov[0])
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, store := setupRedis(t)
	mr.Close()

	_, err := store.Lookup(context.Background(), usdEUR, domain.DateRange{Start: day(1), End: day(2)})
	var pe *domain.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	err = store.Put(context.Background(), fetched(1, 0.9))
	if !errors.As(err, &pe) || pe.Op != "put" {
		t.Fatalf("expected put PersistenceError, got %v", err)
	}
}
