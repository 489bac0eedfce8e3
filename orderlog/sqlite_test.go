package orderlog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *SQLite {
	t.Helper()
	log, err := NewSQLite(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestSQLite_AppendAndList(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	transitions := []struct{ status, step string }{
		{"CREATED", "create"},
		{"INVENTORY_CHECKED", "inventory"},
		{"PAYMENT_COMPLETED", "payment"},
		{"SHIPPED", "shipping"},
	}
	for _, tr := range transitions {
		err := log.Append(ctx, Entry{
			OrderID: "order-1",
			Status:  tr.status,
			Step:    tr.step,
		})
		if err != nil {
			t.Fatalf("Append(%s) error = %v", tr.status, err)
		}
	}
	if err := log.Append(ctx, Entry{OrderID: "order-2", Status: "CREATED", Step: "create"}); err != nil {
		t.Fatalf("Append(other order) error = %v", err)
	}

	entries, err := log.ListByOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("ListByOrder() error = %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("len = %d, want 4", len(entries))
	}
	for i, tr := range transitions {
		if entries[i].Status != tr.status || entries[i].Step != tr.step {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, entries[i].Status, entries[i].Step, tr.status, tr.step)
		}
		if entries[i].CreatedAt.IsZero() {
			t.Errorf("entry %d missing timestamp", i)
		}
	}
}

func TestSQLite_PreservesExplicitTimestamp(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := log.Append(ctx, Entry{OrderID: "order-1", Status: "CREATED", Step: "create", CreatedAt: at}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entries, err := log.ListByOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("ListByOrder() error = %v", err)
	}
	if !entries[0].CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", entries[0].CreatedAt, at)
	}
}

func TestSQLite_ListUnknownOrder(t *testing.T) {
	log := newTestLog(t)

	entries, err := log.ListByOrder(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ListByOrder() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}
}

func TestSQLite_ConcurrentAppends(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := log.Append(ctx, Entry{OrderID: "order-1", Status: "CREATED", Step: "create"})
			if err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := log.ListByOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("ListByOrder() error = %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("len = %d, want 10", len(entries))
	}
}
