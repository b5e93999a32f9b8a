package auth

import (
	"strings"
	"testing"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}
	if len(code) != CodeLength {
		t.Fatalf("expected %d digits, got %q", CodeLength, code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("non-digit character in code: %q", code)
		}
	}
}

func TestGenerateCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode error: %v", err)
		}
		seen[code] = true
	}
	// 20 draws from a million-value space should not all collide.
	if len(seen) < 2 {
		t.Fatal("GenerateCode produced identical codes on every draw")
	}
}

func TestHashCode(t *testing.T) {
	hash, err := HashCode("123456")
	if err != nil {
		t.Fatalf("HashCode error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
}

func TestVerifyCode_Correct(t *testing.T) {
	hash, err := HashCode("123456")
	if err != nil {
		t.Fatalf("HashCode error: %v", err)
	}

	valid, err := VerifyCode("123456", hash)
	if err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}
	if !valid {
		t.Fatal("Correct code was rejected")
	}
}

func TestVerifyCode_Wrong(t *testing.T) {
	hash, err := HashCode("123456")
	if err != nil {
		t.Fatalf("HashCode error: %v", err)
	}

	valid, err := VerifyCode("654321", hash)
	if err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}
	if valid {
		t.Fatal("Wrong code was accepted")
	}
}

func TestVerifyCode_MalformedHash(t *testing.T) {
	if _, err := VerifyCode("123456", "not a hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
	if _, err := VerifyCode("123456", "$bcrypt$v=19$m=1,t=1,p=1$salt$hash"); err == nil {
		t.Fatal("expected error for unsupported hash type")
	}
}
