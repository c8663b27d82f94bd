package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-portfolio-backend/internal/domain"
)

func TestGetIdempotency_EmptyKey_ReturnsNotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "ip:1.2.3.4", "   ", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound), got (%v, %v)", rec, err)
	}
}

func TestCreateThenGetIdempotency(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "ip:1.2.3.4", "k1", 7, 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ContactID != 7 || rec.Status != 201 || rec.ID == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "ip:1.2.3.4", "k1", time.Now().UTC())
	if err != nil || got.ContactID != 7 {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}

	if _, err := GetIdempotency(ctx, db, "ip:9.9.9.9", "k1", time.Now().UTC()); err != ErrNotFound {
		t.Fatalf("other scope must miss, got %v", err)
	}
}

func TestCreateIdempotency_Duplicate(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "s", "k", 1, 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "s", "k", 2, 201, time.Hour); err != ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_ExpiredIsReplacedAndPurged(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()

	past := time.Now().UTC().Add(-2 * time.Hour)
	old := &domain.Idempotency{ID: "old", Scope: "s", Key: "k", ContactID: 1, Status: 201, CreatedAt: past, ExpiresAt: past.Add(time.Hour)}
	if err := db.Create(old).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "s", "k", time.Now().UTC()); err != ErrNotFound {
		t.Fatalf("expired record must not be returned, got %v", err)
	}

	rec, err := CreateIdempotency(ctx, db, "s", "k", 2, 201, time.Hour)
	if err != nil || rec.ContactID != 2 {
		t.Fatalf("expired record should be replaced: %+v, %v", rec, err)
	}

	stale := &domain.Idempotency{ID: "stale", Scope: "s2", Key: "k", ContactID: 3, Status: 201, CreatedAt: past, ExpiresAt: past}
	if err := db.Create(stale).Error; err != nil {
		t.Fatalf("seed stale: %v", err)
	}
	n, err := PurgeIdempotency(ctx, db, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("PurgeIdempotency = %d, %v; want 1", n, err)
	}
}
