package wanikache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func pageBody(t *testing.T, ids []int, nextURL string) []byte {
	t.Helper()
	items := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		items[i] = map[string]interface{}{"id": id, "object": "assignment"}
	}
	envelope := map[string]interface{}{
		"object":          "collection",
		"data_updated_at": "2026-01-02T03:04:05.000000Z",
		"data":            items,
	}
	if nextURL != "" {
		envelope["pages"] = map[string]interface{}{"next_url": nextURL}
	} else {
		envelope["pages"] = map[string]interface{}{}
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestWalkerAssemblesThreePageChain(t *testing.T) {
	pages := map[string][]byte{
		"https://x/assignments":                 pageBody(t, []int{1, 2}, "https://x/assignments?page_after_id=2"),
		"https://x/assignments?page_after_id=2": pageBody(t, []int{3, 4}, "https://x/assignments?page_after_id=4"),
		"https://x/assignments?page_after_id=4": pageBody(t, []int{5}, ""),
	}
	var fetched []string

	walker := &PaginationWalker{
		delay: time.Millisecond,
		fetch: func(ctx context.Context, pageURL string) (*fetchOutcome, error) {
			fetched = append(fetched, pageURL)
			body, ok := pages[pageURL]
			if !ok {
				return nil, fmt.Errorf("unexpected page %s", pageURL)
			}
			return &fetchOutcome{Body: body}, nil
		},
	}

	col, err := walker.CollectAll(context.Background(), "https://x/assignments", "")
	if err != nil {
		t.Fatal(err)
	}

	if len(fetched) != 3 {
		t.Fatalf("Fetched %d pages, want 3: %v", len(fetched), fetched)
	}
	if len(col.Items) != 5 {
		t.Fatalf("Items = %d, want 5", len(col.Items))
	}

	// Items keep page order.
	var first struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(col.Items[0], &first); err != nil {
		t.Fatal(err)
	}
	var last struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(col.Items[4], &last); err != nil {
		t.Fatal(err)
	}
	if first.ID != 1 || last.ID != 5 {
		t.Errorf("Item order wrong: first=%d last=%d", first.ID, last.ID)
	}
	if col.FromCache {
		t.Error("All pages were network-served; FromCache must be false")
	}
	if col.DataUpdatedAt == "" {
		t.Error("DataUpdatedAt should carry through")
	}
}

func TestWalkerAppendsUpdatedAfterFilter(t *testing.T) {
	var got string
	walker := &PaginationWalker{
		delay: time.Millisecond,
		fetch: func(ctx context.Context, pageURL string) (*fetchOutcome, error) {
			got = pageURL
			return &fetchOutcome{Body: pageBody(t, nil, "")}, nil
		},
	}

	if _, err := walker.CollectAll(context.Background(), "https://x/reviews", "2026-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "updated_after=2026-01-01T00%3A00%3A00Z") {
		t.Errorf("URL missing updated_after filter: %s", got)
	}
}

func TestWalkerFromCacheWhenAnyPageCached(t *testing.T) {
	calls := 0
	walker := &PaginationWalker{
		delay: time.Millisecond,
		fetch: func(ctx context.Context, pageURL string) (*fetchOutcome, error) {
			calls++
			if calls == 1 {
				return &fetchOutcome{Body: pageBody(t, []int{1}, "https://x/p2")}, nil
			}
			return &fetchOutcome{Body: pageBody(t, []int{2}, ""), FromCache: true}, nil
		},
	}

	col, err := walker.CollectAll(context.Background(), "https://x/p1", "")
	if err != nil {
		t.Fatal(err)
	}
	if !col.FromCache {
		t.Error("FromCache must be true when any page was cached")
	}
}

func TestWalkerPacesOnlyNetworkServedPages(t *testing.T) {
	calls := 0
	walker := &PaginationWalker{
		delay: 60 * time.Millisecond,
		fetch: func(ctx context.Context, pageURL string) (*fetchOutcome, error) {
			calls++
			switch calls {
			case 1:
				return &fetchOutcome{Body: pageBody(t, []int{1}, "https://x/p2"), FromCache: true}, nil
			case 2:
				return &fetchOutcome{Body: pageBody(t, []int{2}, "https://x/p3")}, nil
			default:
				return &fetchOutcome{Body: pageBody(t, []int{3}, "")}, nil
			}
		},
	}

	start := time.Now()
	if _, err := walker.CollectAll(context.Background(), "https://x/p1", ""); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	// Only the transition after the network-served second page sleeps.
	if elapsed < 60*time.Millisecond {
		t.Errorf("Elapsed %v, want >= one delay", elapsed)
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("Elapsed %v, cached page should not be paced", elapsed)
	}
}

func TestWalkerPropagatesFetchError(t *testing.T) {
	walker := &PaginationWalker{
		delay: time.Millisecond,
		fetch: func(ctx context.Context, pageURL string) (*fetchOutcome, error) {
			return nil, &ClientError{Type: ErrorTypeServer, Message: "down"}
		},
	}

	_, err := walker.CollectAll(context.Background(), "https://x/p1", "")
	if err == nil {
		t.Fatal("Expected error")
	}
}
