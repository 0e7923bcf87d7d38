package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyWorker struct {
	runs     atomic.Int32
	failures int32
}

func (w *flakyWorker) Run(_ context.Context) error {
	run := w.runs.Add(1)
	if run <= w.failures {
		return fmt.Errorf("transient failure %d", run)
	}
	return nil
}

type panickyWorker struct {
	runs atomic.Int32
}

func (w *panickyWorker) Run(_ context.Context) error {
	if w.runs.Add(1) == 1 {
		panic("boom")
	}
	return nil
}

type blockingWorker struct{}

func (blockingWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestSupervisor_RestartsFailedWorker(t *testing.T) {
	req := require.New(t)
	worker := &flakyWorker{failures: 2}
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not drain")
	}
	req.Equal(int32(3), worker.runs.Load())
}

func TestSupervisor_RecoversPanic(t *testing.T) {
	req := require.New(t)
	worker := &panickyWorker{}
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not recover from the panic")
	}
	req.Equal(int32(2), worker.runs.Load())
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	sup.Add(blockingWorker{})

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	// Laisse le worker démarrer avant de stopper
	time.Sleep(50 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
