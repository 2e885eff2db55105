package film

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain"
	domfilm "github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
)

// --- Mocks ---

type mockReader struct {
	films map[int64]domfilm.Film
	err   error
	calls [][]int64
}

func (m *mockReader) FetchByIDs(_ context.Context, ids []int64) ([]domfilm.Film, error) {
	m.calls = append(m.calls, slices.Clone(ids))
	if m.err != nil {
		return nil, m.err
	}
	var out []domfilm.Film
	for _, id := range ids {
		if f, ok := m.films[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockCache struct {
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Key(ns cache.Namespace, args ...any) string {
	return fmt.Sprint(ns, args)
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockCache) GetBatch(_ context.Context, keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) bool {
	m.sets++
	m.data[key] = value
	return true
}

func catalogue() *mockReader {
	return &mockReader{films: map[int64]domfilm.Film{
		1: {ID: 1, Title: "拯救大兵瑞恩", Category: "战争"},
		2: {ID: 2, Title: "流浪地球", Category: "科幻", Year: 2019},
		3: {ID: 3, Title: "星际穿越", Category: "科幻", Rating: 9.4},
	}}
}

// --- Tests ---

func TestGet_ReadThrough(t *testing.T) {
	reader := catalogue()
	c := newMockCache()
	svc := New(reader, c, zap.NewNop())
	ctx := context.Background()

	f, err := svc.Get(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Title != "流浪地球" || f.Year != 2019 {
		t.Errorf("unexpected film %+v", f)
	}

	again, err := svc.Get(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if again != f {
		t.Errorf("cached film differs: %+v vs %+v", again, f)
	}
	if len(reader.calls) != 1 {
		t.Errorf("expected one catalogue read, got %d", len(reader.calls))
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := New(catalogue(), newMockCache(), zap.NewNop())

	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMany_MixedHits(t *testing.T) {
	reader := catalogue()
	c := newMockCache()
	svc := New(reader, c, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Get(ctx, 3); err != nil {
		t.Fatal(err)
	}

	films, err := svc.GetMany(ctx, []int64{3, 99, 1, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([]int64, len(films))
	for i, f := range films {
		got[i] = f.ID
	}
	if !slices.Equal(got, []int64{3, 1}) {
		t.Errorf("ids = %v, want [3 1]", got)
	}
	if last := reader.calls[len(reader.calls)-1]; !slices.Equal(last, []int64{99, 1}) {
		t.Errorf("only misses should reach the catalogue, got %v", last)
	}
}

func TestGetMany_CorruptEntryRefetched(t *testing.T) {
	reader := catalogue()
	c := newMockCache()
	svc := New(reader, c, zap.NewNop())
	c.data[svc.key(1)] = []byte("{not json")

	films, err := svc.GetMany(context.Background(), []int64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(films) != 1 || films[0].Title != "拯救大兵瑞恩" {
		t.Errorf("unexpected films %+v", films)
	}
	if len(reader.calls) != 1 {
		t.Error("corrupt entry must be refetched")
	}
}

func TestGetMany_Limits(t *testing.T) {
	svc := New(catalogue(), nil, zap.NewNop())

	films, err := svc.GetMany(context.Background(), nil)
	if err != nil || films == nil || len(films) != 0 {
		t.Errorf("empty ids: films=%v err=%v", films, err)
	}

	ids := make([]int64, MaxBatch+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	if _, err := svc.GetMany(context.Background(), ids); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestGetMany_ReaderError(t *testing.T) {
	reader := catalogue()
	reader.err = errors.New("database is locked")
	svc := New(reader, nil, zap.NewNop())

	if _, err := svc.GetMany(context.Background(), []int64{1}); err == nil {
		t.Fatal("expected error")
	}
}
