package domain

import (
	"testing"
	"time"
)

func TestIdempotency_Migration_UniqueScopeKey(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatalf("expected unique index ux_scope_key")
	}

	now := time.Now().UTC()
	a := &Idempotency{ID: "i1", Scope: "ip:1.2.3.4", Key: "k1", ContactID: 1, Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := &Idempotency{ID: "i2", Scope: "ip:1.2.3.4", Key: "k1", ContactID: 2, Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected unique violation for same scope+key")
	}

	other := &Idempotency{ID: "i3", Scope: "ip:5.6.7.8", Key: "k1", ContactID: 3, Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("same key in another scope should be allowed: %v", err)
	}
}
