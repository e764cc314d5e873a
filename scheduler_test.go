package wanikache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerHonorsConcurrencyCap(t *testing.T) {
	scheduler := NewRequestScheduler(3)

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = scheduler.Do(func() (*fetchOutcome, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return &fetchOutcome{}, nil
			})
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&peak); got > 3 {
		t.Errorf("Peak concurrency %d exceeds cap 3", got)
	}
}

func TestSchedulerStartsTasksInSubmissionOrder(t *testing.T) {
	// Cap of 1 serializes execution so start order is observable.
	scheduler := NewRequestScheduler(1)

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Occupy the single slot so the rest of the submissions queue up.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = scheduler.Do(func() (*fetchOutcome, error) {
			<-gate
			return &fetchOutcome{}, nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = scheduler.Do(func() (*fetchOutcome, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return &fetchOutcome{}, nil
			})
		}(i)
		// Give each submission time to enqueue before the next.
		time.Sleep(10 * time.Millisecond)
	}

	close(gate)
	wg.Wait()

	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			t.Fatalf("Tasks started out of order: %v", order)
		}
	}
}

func TestSchedulerResultPropagation(t *testing.T) {
	scheduler := NewRequestScheduler(2)

	out, err := scheduler.Do(func() (*fetchOutcome, error) {
		return &fetchOutcome{Body: []byte("ok"), FromCache: true}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Body) != "ok" || !out.FromCache {
		t.Errorf("Unexpected result: %+v", out)
	}

	if scheduler.InFlight() != 0 {
		t.Errorf("InFlight = %d after completion, want 0", scheduler.InFlight())
	}
}
