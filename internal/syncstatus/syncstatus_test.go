package syncstatus

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTransitions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tr := New(3*time.Second, clock)

	if tr.Current().State != Idle {
		t.Fatalf("initial state = %s", tr.Current().State)
	}

	var seen []State
	tr.Subscribe(func(s Status) { seen = append(seen, s.State) })

	tr.Begin("backup")
	if tr.Current().State != Syncing {
		t.Fatalf("after Begin = %s", tr.Current().State)
	}
	tr.Succeed("backup", "saved")
	cur := tr.Current()
	if cur.State != Success || cur.RevertAfterMs != 3000 {
		t.Fatalf("after Succeed = %+v", cur)
	}

	now = now.Add(2 * time.Second)
	if tr.Current().State != Success {
		t.Fatal("success should still be shown inside the window")
	}
	now = now.Add(time.Second)
	if tr.Current().State != Idle {
		t.Fatal("success should revert to idle after the window")
	}

	tr.Begin("restore")
	tr.Fail("restore", errors.New("bad file"))
	now = now.Add(time.Hour)
	cur = tr.Current()
	if cur.State != Error || cur.Message != "bad file" {
		t.Fatalf("error should persist, got %+v", cur)
	}

	want := []State{Syncing, Success, Syncing, Error}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v, want %v", seen, want)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	tr := New(0, nil)
	calls := 0
	cancel := tr.Subscribe(func(Status) { calls++ })
	tr.Begin("save")
	cancel()
	tr.Succeed("save", "")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestConcurrentTransitionsDeliverInOrder(t *testing.T) {
	tr := New(time.Hour, nil)

	var mu sync.Mutex
	var last Status
	tr.Subscribe(func(s Status) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Begin("save")
		}()
		go func() {
			defer wg.Done()
			tr.Succeed("backup", "written")
		}()
	}
	wg.Wait()

	cur := tr.Current()
	mu.Lock()
	defer mu.Unlock()
	if last.State != cur.State || last.Operation != cur.Operation || !last.At.Equal(cur.At) {
		t.Fatalf("last delivered = %+v, Current = %+v", last, cur)
	}
}
