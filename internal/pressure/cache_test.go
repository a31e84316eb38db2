package pressure

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamside/hydrocond/internal/types"
)

func TestCacheAvoidsSecondFetch(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	inner := &fakeRetriever{
		name:   "noaa",
		times:  []time.Time{start, start.Add(time.Hour)},
		values: []float64{101.0, 101.2},
	}
	cache, err := NewCache(filepath.Join(t.TempDir(), "pressure.db"), inner)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	defer cache.Close()

	site := types.Site{Region: "NC", Site: "Eno"}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		times, values, err := cache.FetchPressure(ctx, site, start, end)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(times) != 2 || values[1] != 101.2 {
			t.Fatalf("fetch %d returned %v / %v", i, times, values)
		}
		if !times[0].Equal(start) {
			t.Errorf("fetch %d time[0] = %v, want %v", i, times[0], start)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner retriever called %d times, want 1 (second hit served from cache)", inner.calls)
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	inner := &fakeRetriever{name: "noaa", err: context.DeadlineExceeded}
	cache, err := NewCache(filepath.Join(t.TempDir(), "pressure.db"), inner)
	if err != nil {
		t.Fatalf("opening cache: %v", err)
	}
	defer cache.Close()

	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, _, err := cache.FetchPressure(context.Background(), types.Site{}, start, start.Add(time.Hour)); err == nil {
		t.Fatal("expected fetch error to propagate")
	}

	inner.err = nil
	inner.times = []time.Time{start}
	inner.values = []float64{101.0}
	if _, _, err := cache.FetchPressure(context.Background(), types.Site{}, start, start.Add(time.Hour)); err != nil {
		t.Fatalf("retry should reach the retriever: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}
