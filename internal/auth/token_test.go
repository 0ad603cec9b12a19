package auth

import (
	"testing"
	"time"

	"github.com/zentriztech/zentriz-genesis/internal/access"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	id := access.Identity{UserID: "u1", Email: "a@b.test", Role: "user", TenantID: "t1"}
	token, err := Mint("secret", id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	got, err := Verify("secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != id {
		t.Fatalf("identity = %+v, want %+v", got, id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Mint("secret", access.Identity{UserID: "u1"}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := Verify("other", token); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, err := Mint("secret", access.Identity{UserID: "u1"}, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := Verify("secret", token); err == nil {
		t.Fatal("expected expiry failure")
	}
}
