package search

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
)

// --- Mocks ---

type deadlineSearcher struct {
	deadline time.Time
	hasDL    bool
}

func (d *deadlineSearcher) Search(ctx context.Context, req *request.Request) (response.Response, error) {
	d.deadline, d.hasDL = ctx.Deadline()
	return response.Empty(req.Query()), nil
}

// --- Tests ---

func TestBounded_SetsDeadline(t *testing.T) {
	inner := &deadlineSearcher{}
	req, _ := request.New("科幻", 5, true, true)

	before := time.Now()
	if _, err := NewBounded(inner, time.Second).Search(context.Background(), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inner.hasDL {
		t.Fatal("expected a deadline")
	}
	if d := inner.deadline.Sub(before); d <= 0 || d > 2*time.Second {
		t.Errorf("deadline in %v, want about 1s", d)
	}
}

func TestBounded_ZeroTimeoutPassesThrough(t *testing.T) {
	inner := &deadlineSearcher{}
	req, _ := request.New("科幻", 5, true, true)

	if _, err := NewBounded(inner, 0).Search(context.Background(), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.hasDL {
		t.Error("zero timeout must not set a deadline")
	}
}
