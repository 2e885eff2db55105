package corpus

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kailas-cloud/filmrag/internal/domain/film"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "films.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return r
}

func seed(t *testing.T, r *Repo) {
	t.Helper()
	err := r.Save(context.Background(), []film.Film{
		{ID: 3, Title: "星际穿越", Category: "科幻", Year: 2014, Director: "诺兰", Rating: 9.4},
		{ID: 1, Title: "拯救大兵瑞恩", Category: "战争", Year: 1998, Region: "美国"},
		{ID: 2, Title: "流浪地球", Category: "科幻", Year: 2019, Description: "太阳即将毁灭"},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func ids(films []film.Film) []int64 {
	out := make([]int64, len(films))
	for i, f := range films {
		out[i] = f.ID
	}
	return out
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	r := openTestRepo(t)
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestFetchAll_OrderedByID(t *testing.T) {
	r := openTestRepo(t)
	seed(t, r)

	films, err := r.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if got := ids(films); !slices.Equal(got, []int64{1, 2, 3}) {
		t.Fatalf("ids = %v, want [1 2 3]", got)
	}

	f := films[2]
	if f.Category != "科幻" || f.Year != 2014 || f.Director != "诺兰" || f.Rating != 9.4 {
		t.Errorf("unexpected film %+v", f)
	}
	if films[0].Description != "" || films[0].Region != "美国" {
		t.Errorf("null columns must scan as zero values: %+v", films[0])
	}
}

func TestFetchByIDs(t *testing.T) {
	r := openTestRepo(t)
	seed(t, r)
	ctx := context.Background()

	films, err := r.FetchByIDs(ctx, []int64{3, 99, 2})
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if got := ids(films); !slices.Equal(got, []int64{2, 3}) {
		t.Errorf("ids = %v, want [2 3]", got)
	}

	films, err = r.FetchByIDs(ctx, nil)
	if err != nil || films != nil {
		t.Errorf("empty ids: films=%v err=%v", films, err)
	}
}

func TestDeleteHidesFilm(t *testing.T) {
	r := openTestRepo(t)
	seed(t, r)
	ctx := context.Background()

	if err := r.Delete(ctx, 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	n, err := r.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	films, err := r.FetchByIDs(ctx, []int64{2})
	if err != nil {
		t.Fatal(err)
	}
	if len(films) != 0 {
		t.Errorf("deleted film returned: %+v", films)
	}
}

func TestSave_Upserts(t *testing.T) {
	r := openTestRepo(t)
	seed(t, r)
	ctx := context.Background()

	if err := r.Save(ctx, []film.Film{{ID: 1, Title: "拯救大兵瑞恩", Category: "剧情"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	films, err := r.FetchByIDs(ctx, []int64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(films) != 1 || films[0].Category != "剧情" || films[0].Year != 0 {
		t.Errorf("unexpected film after upsert: %+v", films)
	}

	n, _ := r.Count(ctx)
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestSave_RejectsMissingID(t *testing.T) {
	r := openTestRepo(t)
	if err := r.Save(context.Background(), []film.Film{{Title: "无名"}}); err == nil {
		t.Fatal("expected error for film without id")
	}
}

func TestHealthCheck(t *testing.T) {
	r := openTestRepo(t)
	if err := r.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
