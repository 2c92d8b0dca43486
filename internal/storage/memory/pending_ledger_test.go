package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestPendingLedger_SetOverwrites(t *testing.T) {
	ledger := memory.NewPendingLedger(nil)
	ctx := context.Background()

	ledger.SetPending(ctx, session, "order-1")
	ledger.SetPending(ctx, session, "order-2")

	orderID, ok := ledger.GetPending(ctx, session)
	if !ok {
		t.Fatal("expected pending marker")
	}
	if orderID != "order-2" {
		t.Fatalf("expected marker order-2, got %s", orderID)
	}
}

func TestPendingLedger_AbsentIsValidState(t *testing.T) {
	ledger := memory.NewPendingLedger(nil)

	if _, ok := ledger.GetPending(context.Background(), "unknown-session"); ok {
		t.Fatal("expected no pending marker")
	}
}

func TestPendingLedger_ClearRemovesMarker(t *testing.T) {
	ledger := memory.NewPendingLedger(nil)
	ctx := context.Background()

	ledger.SetPending(ctx, session, "order-1")
	ledger.ClearPending(ctx, session)

	if _, ok := ledger.GetPending(ctx, session); ok {
		t.Fatal("expected marker to be cleared")
	}

	// Повторная очистка — no-op.
	ledger.ClearPending(ctx, session)
}

func TestPendingLedger_IgnoresEmptyKeys(t *testing.T) {
	ledger := memory.NewPendingLedger(nil)
	ctx := context.Background()

	ledger.SetPending(ctx, "", "order-1")
	ledger.SetPending(ctx, session, "")

	if _, ok := ledger.GetPending(ctx, session); ok {
		t.Fatal("expected no marker for empty order id")
	}
}

func TestPendingLedger_DeleteExpired(t *testing.T) {
	ledger := memory.NewPendingLedger(nil)
	ctx := context.Background()

	ledger.SetPending(ctx, session, "order-1")
	ledger.SetPending(ctx, "session-2", "order-2")

	// Все маркеры моложе суток, удалять нечего.
	deleted, err := ledger.DeleteExpired(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected 0 deleted, got %d", deleted)
	}

	// Спустя TTL оба маркера подлежат уборке.
	deleted, err = ledger.DeleteExpired(ctx, time.Now().UTC().Add(25*time.Hour), 10)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	if _, ok := ledger.GetPending(ctx, session); ok {
		t.Fatal("expected expired marker to be gone")
	}
}
