package security

import (
	"strings"
	"testing"

	"github.com/touchtrial/touchtrial-backend/pkg/config"
)

func fastArgonConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("tr1al-time!", fastArgonConfig())
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := VerifyPassword("tr1al-time!", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification success, got ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	if _, err := HashPassword("", fastArgonConfig()); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("pw", "not-a-hash"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
	if _, err := VerifyPassword("pw", "$argon2id$v=19$m=8,t=1,p=1$bad!!salt$hash"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash for bad base64, got %v", err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	first, err := HashPassword("same", fastArgonConfig())
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := HashPassword("same", fastArgonConfig())
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}
