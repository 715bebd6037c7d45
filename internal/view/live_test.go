package view

import (
	"testing"
	"time"
)

func TestFeedNeverBlocksWithoutViewer(t *testing.T) {
	_, onIter, finish := Feed()

	done := make(chan struct{})
	go func() {
		// far more frames than the channel buffers
		for i := 0; i < 500; i++ {
			onIter(i, 1.0)
		}
		finish(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feeding without a viewer blocked the solver")
	}
}

func TestModelTracksIterations(t *testing.T) {
	msgs, _, _ := Feed()
	m := NewModel("case", "design", msgs)

	next, _ := m.Update(IterMsg{Iter: 0, Residual: 10})
	next, _ = next.(Model).Update(IterMsg{Iter: 1, Residual: 1})
	next, _ = next.(Model).Update(DoneMsg{Err: nil})

	got := next.(Model)
	if got.iter != 2 {
		t.Errorf("iter = %d, want 2", got.iter)
	}
	if len(got.residuals) != 2 || got.residuals[1] != 1 {
		t.Errorf("residuals = %v", got.residuals)
	}
	if !got.done || got.err != nil {
		t.Errorf("done = %v, err = %v", got.done, got.err)
	}
}
