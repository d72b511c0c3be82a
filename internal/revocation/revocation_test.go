package revocation

import (
	"context"
	"testing"
	"time"
)

func TestDisabledListNeverRevokes(t *testing.T) {
	list := New(nil)
	if list.Enabled() {
		t.Fatalf("expected disabled list")
	}
	if err := list.Revoke(context.Background(), "jti", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke error: %v", err)
	}
	revoked, err := list.IsRevoked(context.Background(), "jti")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if revoked {
		t.Fatalf("expected token not revoked")
	}
}

func TestNilListIsSafe(t *testing.T) {
	var list *List
	if list.Enabled() {
		t.Fatalf("expected nil list disabled")
	}
	if revoked, _ := list.IsRevoked(context.Background(), "jti"); revoked {
		t.Fatalf("expected nil list to report not revoked")
	}
}

func TestKeyFormat(t *testing.T) {
	if got := key("abc"); got != "revoked_token:abc" {
		t.Fatalf("unexpected key %s", got)
	}
}
