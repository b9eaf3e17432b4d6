package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"video-transcriber/internal/domain"
)

// TestRegistryAllowsConcurrentRequests verifies there is no single-job guard.
func TestRegistryAllowsConcurrentRequests(t *testing.T) {
	r := NewRegistry()
	first := r.Start("https://youtu.be/a", nil)
	second := r.Start("https://youtu.be/b", nil)

	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("ids = %q, %q; want distinct non-empty", first.ID, second.ID)
	}
	if got := len(r.Active()); got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}
}

// TestRegistryActiveOrderedByStart checks snapshot ordering.
func TestRegistryActiveOrderedByStart(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	seq := 0
	r.newID = func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	}

	r.Start("a", nil)
	r.Start("b", nil)
	r.Start("c", nil)

	active := r.Active()
	for i, want := range []string{"a", "b", "c"} {
		if active[i].URL != want {
			t.Fatalf("active[%d].URL = %q, want %q", i, active[i].URL, want)
		}
	}
}

// TestRegistryCancelInvokesCancelFunc verifies cancellation plumbing.
func TestRegistryCancelInvokesCancelFunc(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	req := r.Start("https://youtu.be/a", cancel)

	if err := r.Cancel(req.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Fatalf("ctx err = %v, want canceled", ctx.Err())
	}

	final, ok := r.Finish(req.ID, domain.RequestStatusCancelled)
	if !ok || final.Status != domain.RequestStatusCancelled {
		t.Fatalf("finish = %+v, %v", final, ok)
	}
	if err := r.Cancel(req.ID); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("second cancel error = %v, want %v", err, ErrUnknownRequest)
	}
}

// TestRegistryFinishUnknown checks finishing twice is reported.
func TestRegistryFinishUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Finish("missing", domain.RequestStatusDone); ok {
		t.Fatal("expected unknown id")
	}
}

// TestRegistryCancelAll cancels every running request.
func TestRegistryCancelAll(t *testing.T) {
	r := NewRegistry()
	ctxA, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	r.Start("a", cancelA)
	r.Start("b", cancelB)

	if n := r.CancelAll(); n != 2 {
		t.Fatalf("cancelled = %d, want 2", n)
	}
	if ctxA.Err() == nil || ctxB.Err() == nil {
		t.Fatal("expected both contexts cancelled")
	}
}
