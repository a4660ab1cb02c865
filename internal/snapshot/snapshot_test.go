package snapshot

import (
	"context"
	"testing"
	"time"

	"contacts_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRepo(t *testing.T) (*Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewWithClient(client, logger.New("test"))
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "contacts:snapshot", `{"contacts":[]}`); err != nil {
		t.Fatalf("Save: %v", err)
	}

	value, found, err := repo.Load(ctx, "contacts:snapshot")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found || value != `{"contacts":[]}` {
		t.Errorf("Load = %q found=%v", value, found)
	}
}

func TestLoadMissingKey(t *testing.T) {
	repo, _ := testRepo(t)

	_, found, err := repo.Load(context.Background(), "contacts:snapshot")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("missing key must report not found, not an error")
	}
}

func TestClear(t *testing.T) {
	repo, mr := testRepo(t)
	ctx := context.Background()

	_ = repo.Save(ctx, "a", "1")
	_ = repo.Save(ctx, "b", "2")
	if err := repo.Clear(ctx, "a", "b"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if mr.Exists("a") || mr.Exists("b") {
		t.Error("cleared keys still present")
	}
}

func TestSubscribeDeliversOtherSessionsWrites(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logger.New("test")
	a := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), log)
	b := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), log)
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := a.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := b.Save(ctx, "contacts:active-consultant", "Bruno"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Key != "contacts:active-consultant" || evt.Value != "Bruno" {
			t.Errorf("unexpected event: %+v", evt)
		}
		if evt.SessionID != b.SessionID() {
			t.Errorf("event session = %q, want writer %q", evt.SessionID, b.SessionID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}
}

func TestSubscribeSuppressesOwnWrites(t *testing.T) {
	repo, _ := testRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := repo.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := repo.Save(ctx, "contacts:snapshot", "{}"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case evt := <-events:
		t.Fatalf("own write echoed back: %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}
