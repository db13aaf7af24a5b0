package crdtsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/go-mizu/crdtsync"
	"github.com/go-mizu/crdtsync/loopback"
)

func TestIsValidCollectionNameUsedByBuild(t *testing.T) {
	_, err := Builder("system.reserved", "alias").Build()
	var ce *ClientError
	if err == nil {
		t.Fatal("expected InvalidCollectionName error")
	}
	if !errors.As(err, &ce) || ce.Kind != InvalidCollectionName {
		t.Fatalf("expected InvalidCollectionName, got %v", err)
	}
}

func TestSoloCounterScenario(t *testing.T) {
	server := loopback.NewServer()
	client, err := Builder("docs", "A").WithConnectivity(server).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()
	counter, err := client.CreateDatatype("c").BuildCounter(ctx)
	if err != nil {
		t.Fatalf("BuildCounter: %v", err)
	}
	defer client.Close(ctx)

	for i := 0; i < 3; i++ {
		if err := counter.Increase(); err != nil {
			t.Fatalf("Increase: %v", err)
		}
	}
	if err := counter.IncreaseBy(-1); err != nil {
		t.Fatalf("IncreaseBy: %v", err)
	}

	if got := counter.GetValue(); got != 2 {
		t.Fatalf("GetValue() before sync = %d, want 2", got)
	}

	syncCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := counter.Sync(syncCtx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if got := counter.SyncedClientVersion(); got != 4 {
		t.Fatalf("SyncedClientVersion() = %d, want 4 (4 committed transactions)", got)
	}
	if got := counter.GetValue(); got != 2 {
		t.Fatalf("GetValue() after sync = %d, want 2", got)
	}
}

func TestCreatorSubscriberConvergence(t *testing.T) {
	server := loopback.NewServer()
	ctx := context.Background()

	a, err := Builder("docs", "A").WithConnectivity(server).Build()
	if err != nil {
		t.Fatalf("Build A: %v", err)
	}
	defer a.Close(ctx)
	counterA, err := a.CreateDatatype("c").BuildCounter(ctx)
	if err != nil {
		t.Fatalf("A BuildCounter: %v", err)
	}
	if err := counterA.IncreaseBy(42); err != nil {
		t.Fatalf("IncreaseBy: %v", err)
	}
	syncCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := counterA.Sync(syncCtx); err != nil {
		t.Fatalf("A Sync: %v", err)
	}

	b, err := Builder("docs", "B").WithConnectivity(server).Build()
	if err != nil {
		t.Fatalf("Build B: %v", err)
	}
	defer b.Close(ctx)
	counterB, err := b.SubscribeDatatype("c").BuildCounter(ctx)
	if err != nil {
		t.Fatalf("B BuildCounter: %v", err)
	}
	syncCtx2, cancel2 := context.WithTimeout(ctx, 2*time.Second)
	defer cancel2()
	if err := counterB.Sync(syncCtx2); err != nil {
		t.Fatalf("B Sync: %v", err)
	}

	if got := counterB.GetValue(); got != 42 {
		t.Fatalf("B.GetValue() = %d, want 42", got)
	}
	if a.Cuid() == b.Cuid() {
		t.Fatal("A and B must have distinct cuids")
	}
}

func TestTransactionRollbackScenario(t *testing.T) {
	server := loopback.NewServer()
	client, err := Builder("docs", "A").WithConnectivity(server).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()
	defer client.Close(ctx)
	counter, err := client.CreateDatatype("c").BuildCounter(ctx)
	if err != nil {
		t.Fatalf("BuildCounter: %v", err)
	}

	if err := counter.Transaction("tx1", func(c *Counter) error {
		if err := c.IncreaseBy(1); err != nil {
			return err
		}
		return c.IncreaseBy(2)
	}); err != nil {
		t.Fatalf("tx1: %v", err)
	}
	if got := counter.GetValue(); got != 3 {
		t.Fatalf("value after tx1 = %d, want 3", got)
	}

	boom := context.Canceled
	err = counter.Transaction("tx2", func(c *Counter) error {
		if err := c.IncreaseBy(100); err != nil {
			return err
		}
		return boom
	})
	if err == nil {
		t.Fatal("expected tx2 to fail")
	}
	if got := counter.GetValue(); got != 3 {
		t.Fatalf("value after rollback = %d, want 3", got)
	}
}

func TestReadonlyRejectionScenario(t *testing.T) {
	server := loopback.NewServer()
	client, err := Builder("docs", "A").WithConnectivity(server).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()
	defer client.Close(ctx)
	counter, err := client.CreateDatatype("c").WithReadonly().BuildCounter(ctx)
	if err != nil {
		t.Fatalf("BuildCounter: %v", err)
	}

	err = counter.Increase()
	var de *DatatypeError
	if !errors.As(err, &de) || de.Kind != FailedToWrite {
		t.Fatalf("expected FailedToWrite, got %v", err)
	}

	err = counter.Transaction("t", func(c *Counter) error { return c.IncreaseBy(1) })
	if !errors.As(err, &de) || de.Kind != FailedToWrite {
		t.Fatalf("expected FailedToWrite from Transaction, got %v", err)
	}
}

func TestDuplicateKeyRejected(t *testing.T) {
	server := loopback.NewServer()
	client, err := Builder("docs", "A").WithConnectivity(server).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()
	defer client.Close(ctx)
	if _, err := client.CreateDatatype("c").BuildCounter(ctx); err != nil {
		t.Fatalf("first BuildCounter: %v", err)
	}
	_, err = client.CreateDatatype("c").BuildCounter(ctx)
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Kind != FailedToSubscribeOrCreateDatatype {
		t.Fatalf("expected FailedToSubscribeOrCreateDatatype, got %v", err)
	}
}
