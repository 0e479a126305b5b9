package scheduler

import (
	"testing"
	"time"
)

func TestRunPendingPreservesFIFOOrder(t *testing.T) {
	r := NewRunner()
	var order []int
	r.Enqueue(func() { order = append(order, 1) })
	r.Enqueue(func() { order = append(order, 2) })
	r.Enqueue(func() { order = append(order, 3) })

	r.RunPending()

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestRunPendingDefersTasksEnqueuedDuringTheTick(t *testing.T) {
	r := NewRunner()
	ran := 0
	r.Enqueue(func() {
		ran++
		r.Enqueue(func() { ran++ })
	})

	r.RunPending()
	if ran != 1 {
		t.Fatalf("ran = %d after first RunPending, want 1", ran)
	}

	r.RunPending()
	if ran != 2 {
		t.Fatalf("ran = %d after second RunPending, want 2", ran)
	}
}

func TestClosedRunnerDropsEnqueuedWork(t *testing.T) {
	r := NewRunner()
	r.Close()

	ran := false
	r.Enqueue(func() { ran = true })
	r.RunPending()

	if ran {
		t.Fatalf("task ran after Close")
	}
	if !r.Closed() {
		t.Fatalf("Closed() = false after Close()")
	}
}

func TestWaitUnblocksOnEnqueueAndOnClose(t *testing.T) {
	r := NewRunner()

	done := make(chan bool, 1)
	go func() { done <- r.Wait() }()

	r.Enqueue(func() {})
	select {
	case got := <-done:
		if !got {
			t.Fatalf("Wait() = false, want true after Enqueue")
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait() did not unblock after Enqueue")
	}

	r2 := NewRunner()
	go func() { done <- r2.Wait() }()
	r2.Close()
	select {
	case got := <-done:
		if got {
			t.Fatalf("Wait() = true, want false after Close with nothing queued")
		}
	case <-time.After(time.Second):
		t.Fatalf("Wait() did not unblock after Close")
	}
}

func TestAfterEnqueuesOnTimerFire(t *testing.T) {
	r := NewRunner()
	fired := make(chan struct{})
	r.After(1, func() { close(fired) })

	ok := r.Wait()
	if !ok {
		t.Fatalf("Wait() = false, want true once the timer fires")
	}
	r.RunPending()

	select {
	case <-fired:
	default:
		t.Fatalf("timer task did not run")
	}
}

func TestRunFrameAccumulatesAndResets(t *testing.T) {
	r := NewRunner()
	calls := 0
	r.AfterFrame(func() { calls++ })
	r.AfterFrame(func() { calls++ })

	r.RunFrame()
	if calls != 2 {
		t.Fatalf("calls = %d after first RunFrame, want 2", calls)
	}

	// The accumulated list resets after a frame; a second call with
	// nothing newly queued runs nothing (even ignoring rate limiting).
	r.RunFrame()
	if calls != 2 {
		t.Fatalf("calls = %d after second RunFrame, want 2 (list should have reset)", calls)
	}
}

func TestRunFramePacedByFrameLimiter(t *testing.T) {
	r := NewRunner()
	r.frameLimiter.SetLimit(0) // never refill after the initial burst
	r.frameLimiter.SetBurst(1)

	calls := 0
	r.AfterFrame(func() { calls++ })
	r.RunFrame()
	if calls != 1 {
		t.Fatalf("calls = %d after first RunFrame, want 1", calls)
	}

	r.AfterFrame(func() { calls++ })
	r.RunFrame()
	if calls != 1 {
		t.Fatalf("calls = %d after throttled RunFrame, want 1 (should have been skipped)", calls)
	}
}
