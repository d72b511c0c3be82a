package crypto

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPasswordCost("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestHashPasswordCostFallsBackToDefault(t *testing.T) {
	hash, err := HashPasswordCost("secret", 99)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost error: %v", err)
	}
	if cost != DefaultCost {
		t.Fatalf("expected cost %d, got %d", DefaultCost, cost)
	}
}

func TestNewTemporaryPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		password, err := NewTemporaryPassword()
		if err != nil {
			t.Fatalf("generate error: %v", err)
		}
		if len(password) != TemporaryPasswordLength {
			t.Fatalf("expected length %d, got %d", TemporaryPasswordLength, len(password))
		}
		for _, r := range password {
			if !strings.ContainsRune(temporaryAlphabet, r) {
				t.Fatalf("unexpected character %q", r)
			}
		}
		if seen[password] {
			t.Fatalf("duplicate temporary password %s", password)
		}
		seen[password] = true
	}
}
