package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/service/session"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type fakeDeleter struct {
	batches []int
	err     error
	calls   int
}

func (f *fakeDeleter) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	deleted := f.batches[0]
	f.batches = f.batches[1:]
	return deleted, nil
}

func TestDeleteExpired_DrainsInBatches(t *testing.T) {
	deleter := &fakeDeleter{batches: []int{5, 5, 2}}
	worker := session.NewCleanupWorker(deleter, session.WithBatchSize(5))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 12 {
		t.Fatalf("expected 12 deleted, got %d", deleted)
	}
	if deleter.calls != 3 {
		t.Fatalf("expected 3 batch calls, got %d", deleter.calls)
	}
}

func TestDeleteExpired_StopsOnError(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("storage down")}
	worker := session.NewCleanupWorker(deleter)

	if _, err := worker.DeleteExpired(context.Background(), time.Now()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestDeleteExpired_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleter := &fakeDeleter{batches: []int{5}}
	worker := session.NewCleanupWorker(deleter)

	_, err := worker.DeleteExpired(ctx, time.Now())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if deleter.calls != 0 {
		t.Fatal("no deletions expected after cancellation")
	}
}

func TestDeleteExpired_AgainstMemoryLedger(t *testing.T) {
	ledger := memory.NewPendingLedger(nil)
	ledger.SetPending(context.Background(), "session-1", "order-1")
	ledger.SetPending(context.Background(), "session-2", "order-2")

	worker := session.NewCleanupWorker(ledger, session.WithBatchSize(10))

	// Срок жизни маркеров ещё не истёк.
	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected 0 deleted, got %d", deleted)
	}

	deleted, err = worker.DeleteExpired(context.Background(), time.Now().UTC().Add(25*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if _, ok := ledger.GetPending(context.Background(), "session-1"); ok {
		t.Fatal("expired marker must be gone")
	}
}

func TestRun_DisabledWithoutDeleter(t *testing.T) {
	worker := session.NewCleanupWorker(nil)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without a deleter must return immediately")
	}
}
