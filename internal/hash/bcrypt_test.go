package hash_test

import (
	"testing"

	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_VerifyRoundTrip(t *testing.T) {
	h := hash.NewBcrypt(bcrypt.MinCost)

	hashed, err := h.Hash("417392")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "417392" {
		t.Fatal("hash must not equal plaintext")
	}
	if !h.Verify(hashed, "417392") {
		t.Error("expected correct code to verify")
	}
	if h.Verify(hashed, "000000") {
		t.Error("expected wrong code to fail")
	}
}

func TestBcrypt_SaltedHashesDiffer(t *testing.T) {
	h := hash.NewBcrypt(bcrypt.MinCost)

	a, _ := h.Hash("123456")
	b, _ := h.Hash("123456")
	if a == b {
		t.Error("two hashes of the same input should differ (salt)")
	}
}

func TestBcrypt_GarbageHash_DoesNotVerify(t *testing.T) {
	h := hash.NewBcrypt(bcrypt.MinCost)
	if h.Verify("not-a-bcrypt-hash", "123456") {
		t.Error("garbage hash must not verify")
	}
}

func TestNewBcrypt_OutOfRangeCost_FallsBackToDefault(t *testing.T) {
	h := hash.NewBcrypt(99)

	hashed, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}
