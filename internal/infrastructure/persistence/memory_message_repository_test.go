package persistence

import (
	"context"
	"testing"

	"github.com/chatbridge/chatbridge/internal/domain/entity"
	"github.com/chatbridge/chatbridge/pkg/errors"
)

func mustMessage(t *testing.T, senderID int64, name, content string) *entity.Message {
	t.Helper()
	msg, err := entity.NewMessage(senderID, name, content)
	if err != nil {
		t.Fatalf("unexpected entity error: %v", err)
	}
	return msg
}

// --- Test: Save assigns monotonically increasing ids ---

func TestMemoryRepository_SaveAssignsIDs(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()

	first := mustMessage(t, 1, "alice", "hello")
	second := mustMessage(t, 2, "bob", "hi")

	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if first.ID() == 0 || second.ID() <= first.ID() {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID(), second.ID())
	}
	if first.Timestamp().IsZero() {
		t.Fatalf("expected the store to assign a timestamp")
	}
}

// --- Test: ListAfter honors the watermark ---

func TestMemoryRepository_ListAfterWatermark(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		repo.Save(ctx, mustMessage(t, 1, "alice", "msg"))
	}

	msgs, err := repo.ListAfter(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after id 2, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID() <= msgs[i-1].ID() {
			t.Fatalf("expected ascending order, got %d after %d", msgs[i].ID(), msgs[i-1].ID())
		}
	}

	// Watermark beyond every id yields an empty sequence.
	msgs, err = repo.ListAfter(ctx, 999, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages past id 999, got %d", len(msgs))
	}
}

// --- Test: ListAfter applies the optional page cap ---

func TestMemoryRepository_ListAfterLimit(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		repo.Save(ctx, mustMessage(t, 1, "alice", "msg"))
	}

	msgs, err := repo.ListAfter(ctx, 0, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected page of 2, got %d", len(msgs))
	}
}

// --- Test: Delete distinguishes not-found and never reuses ids ---

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()

	msg := mustMessage(t, 1, "alice", "hello")
	repo.Save(ctx, msg)

	if err := repo.Delete(ctx, 999); !errors.IsNotFound(err) {
		t.Fatalf("expected NOT_FOUND for missing id, got %v", err)
	}

	if count, _ := repo.Count(ctx); count != 1 {
		t.Fatalf("expected failed delete to leave the store unchanged, count=%d", count)
	}

	if err := repo.Delete(ctx, msg.ID()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if count, _ := repo.Count(ctx); count != 0 {
		t.Fatalf("expected empty store after delete, count=%d", count)
	}

	// A fresh insert keeps counting upward; deleted ids are never reused.
	next := mustMessage(t, 1, "alice", "again")
	repo.Save(ctx, next)
	if next.ID() <= msg.ID() {
		t.Fatalf("expected id beyond %d, got %d", msg.ID(), next.ID())
	}
}
