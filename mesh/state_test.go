package mesh

import (
	"errors"
	"sync"
	"testing"
)

func TestNewResultTracker(t *testing.T) {
	rt := NewResultTracker()
	if rt.HasResult() {
		t.Error("new tracker should have no result")
	}
	if rt.Latest() != nil {
		t.Error("Latest() should be nil before the first update")
	}
	if _, ok := rt.LatestResult(); ok {
		t.Error("LatestResult() should report false before the first update")
	}
}

func TestResultTracker_Update(t *testing.T) {
	rt := NewResultTracker()
	sol := &Solution{Result: Result{RunID: "a", Source: "file", Checksum: 42}}

	rt.RecordError("file", errors.New("boom"))
	if got := rt.Errors()["file"]; got != "boom" {
		t.Errorf("Errors()[file] = %q, want boom", got)
	}

	rt.Update(sol)
	if !rt.HasResult() {
		t.Fatal("HasResult() should be true after Update")
	}
	r, ok := rt.LatestResult()
	if !ok || r.Checksum != 42 {
		t.Errorf("LatestResult() = %+v, %v", r, ok)
	}
	if _, ok := rt.Errors()["file"]; ok {
		t.Error("a successful solve should clear the source's error")
	}
}

func TestResultTracker_HistoryLimit(t *testing.T) {
	rt := NewResultTracker()
	for i := 0; i < historyLimit+5; i++ {
		rt.Update(&Solution{Result: Result{Roughness: i}})
	}
	history := rt.History()
	if len(history) != historyLimit {
		t.Fatalf("len(History()) = %d, want %d", len(history), historyLimit)
	}
	if history[0].Roughness != 5 {
		t.Errorf("oldest kept result = %d, want 5", history[0].Roughness)
	}
	if history[len(history)-1].Roughness != historyLimit+4 {
		t.Errorf("newest result = %d, want %d", history[len(history)-1].Roughness, historyLimit+4)
	}
}

func TestResultTracker_Subscribe(t *testing.T) {
	rt := NewResultTracker()
	ch, cancel := rt.Subscribe()
	if rt.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", rt.SubscriberCount())
	}

	rt.Update(&Solution{Result: Result{RunID: "run-1"}})
	got := <-ch
	if got.RunID != "run-1" {
		t.Errorf("received RunID %q, want run-1", got.RunID)
	}

	cancel()
	cancel() // idempotent
	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	if rt.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after cancel, want 0", rt.SubscriberCount())
	}
}

func TestResultTracker_SlowSubscriberDoesNotBlock(t *testing.T) {
	rt := NewResultTracker()
	_, cancel := rt.Subscribe()
	defer cancel()

	for i := 0; i < 20; i++ {
		rt.Update(&Solution{Result: Result{Roughness: i}})
	}
	if r, _ := rt.LatestResult(); r.Roughness != 19 {
		t.Errorf("latest roughness = %d, want 19", r.Roughness)
	}
}

func TestResultTracker_Concurrent(t *testing.T) {
	rt := NewResultTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			rt.Update(&Solution{Result: Result{Roughness: i}})
		}(i)
		go func() {
			defer wg.Done()
			_ = rt.History()
			_, _ = rt.LatestResult()
		}()
	}
	wg.Wait()
	if len(rt.History()) != 8 {
		t.Errorf("len(History()) = %d, want 8", len(rt.History()))
	}
}
