package tray

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestStatusText(t *testing.T) {
	got := StatusText(2, 3, 1)
	want := "Viewers: 2 | Controllers: 3 (1 authorized)"
	if got != want {
		t.Errorf("StatusText = %q, want %q", got, want)
	}
}

func TestSetItemTitleBeforeRun(t *testing.T) {
	tr := New("LRC", "tooltip")
	status := tr.AddMenuItem("Starting...", nil)
	tr.AddSeparator()
	quit := tr.AddMenuItem("Quit", func() {})

	tr.SetItemTitle(status, "Viewers: 0")
	tr.SetItemTitle(1, "separator is not an item")
	tr.SetItemTitle(99, "out of range")

	if got := tr.ItemTitle(status); got != "Viewers: 0" {
		t.Errorf("status title = %q", got)
	}
	if got := tr.ItemTitle(quit); got != "Quit" {
		t.Errorf("quit title = %q", got)
	}
	if got := tr.ItemTitle(1); got != "" {
		t.Errorf("separator title = %q, want empty", got)
	}
}

func TestRefreshUpdatesUntilCancelled(t *testing.T) {
	tr := New("LRC", "tooltip")
	id := tr.AddMenuItem("", nil)

	var n atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Refresh(ctx, id, 5*time.Millisecond, func() string {
			return StatusText(n.Add(1), 0, 0)
		})
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Refresh did not stop after cancel")
	}
	if n.Load() < 3 {
		t.Errorf("refreshed %d times, want at least 3", n.Load())
	}
	if tr.ItemTitle(id) == "" {
		t.Error("title never set")
	}
}
