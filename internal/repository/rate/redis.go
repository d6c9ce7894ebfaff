package rate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

const keyPrefix = "fxtrend:rates:"

// putScript sets one date field of a pair hash and reports what it replaced:
// {0, old} unchanged, {1, ""} inserted, {2, old} corrected.
var putScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[1], ARGV[1])
if not old then
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return {1, ''}
end
if old == ARGV[2] then
	return {0, old}
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return {2, old}
`)

// RedisStore keeps one hash per pair with YYYY-MM-DD fields. Writes go
// through a Lua script so a read-compare-write on one key is atomic.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func pairKey(p domain.Pair) string { return keyPrefix + p.String() }

func formatRate(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (s *RedisStore) Lookup(ctx context.Context, pair domain.Pair, r domain.DateRange) (map[time.Time]domain.Point, error) {
	dates := r.Dates()
	fields := make([]string, len(dates))
	for i, d := range dates {
		fields[i] = d.Format(dateFormat)
	}

	vals, err := s.client.HMGet(ctx, pairKey(pair), fields...).Result()
	if err != nil {
		return nil, &domain.PersistenceError{Op: "lookup", Err: err}
	}

	points := make(map[time.Time]domain.Point)
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil || !domain.ValidRate(f) {
			slog.Warn("skipping unreadable cached rate", "pair", pair, "date", fields[i], "value", str)
			continue
		}
		points[dates[i]] = domain.Point{Pair: pair, Date: dates[i], Rate: f, Origin: domain.OriginCached}
	}
	return points, nil
}

func (s *RedisStore) Put(ctx context.Context, p domain.Point) error {
	if err := domain.CheckCacheable(p); err != nil {
		return err
	}
	date := domain.Day(p.Date).Format(dateFormat)

	res, err := putScript.Run(ctx, s.client, []string{pairKey(p.Pair)}, date, formatRate(p.Rate)).Slice()
	if err != nil {
		return &domain.PersistenceError{Op: "put", Err: err}
	}
	if len(res) == 2 {
		if code, _ := res[0].(int64); code == 2 {
			slog.Warn("cached rate corrected", "pair", p.Pair, "date", date, "old", res[1], "new", p.Rate)
		}
	}
	return nil
}

func (s *RedisStore) Pairs(ctx context.Context) ([]domain.Coverage, error) {
	var out []domain.Coverage
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		pair, err := domain.ParsePair(strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			continue
		}
		fields, err := s.client.HKeys(ctx, key).Result()
		if err != nil {
			return nil, &domain.PersistenceError{Op: "pairs", Err: fmt.Errorf("hkeys %s: %w", key, err)}
		}
		if len(fields) == 0 {
			continue
		}
		sort.Strings(fields)
		c := domain.Coverage{Pair: pair, Points: len(fields)}
		c.First, _ = time.Parse(dateFormat, fields[0])
		c.Last, _ = time.Parse(dateFormat, fields[len(fields)-1])
		out = append(out, c)
	}
	if err := iter.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "pairs", Err: err}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Pair.String() < out[j].Pair.String() })
	return out, nil
}
