package apikey_test

import (
	"strings"
	"testing"

	"github.com/loglens/loglens/internal/apikey"
)

func TestHashVerifyRoundtrip(t *testing.T) {
	hash, err := apikey.HashKey([]byte("llk_secret-key-material"), testKDF)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}

	ok, err := apikey.VerifyKey([]byte("llk_secret-key-material"), hash)
	if err != nil {
		t.Fatalf("VerifyKey: %v", err)
	}
	if !ok {
		t.Error("correct key did not verify")
	}

	ok, err = apikey.VerifyKey([]byte("llk_secret-key-materiaX"), hash)
	if err != nil {
		t.Fatalf("VerifyKey (wrong): %v", err)
	}
	if ok {
		t.Error("wrong key verified")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h1, err := apikey.HashKey([]byte("same-key"), testKDF)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	h2, err := apikey.HashKey([]byte("same-key"), testKDF)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	if h1 == h2 {
		t.Error("two digests of the same key must differ (per-record salt)")
	}
}

func TestVerifyKeyRejectsMalformedDigest(t *testing.T) {
	tests := []string{
		"",
		"plainhash",
		"$bcrypt$whatever",
		"$argon2id$v=19$m=65536,t=3,p=2$only-one-part",
	}

	for _, stored := range tests {
		t.Run(stored, func(t *testing.T) {
			if _, err := apikey.VerifyKey([]byte("k"), stored); err == nil {
				t.Errorf("VerifyKey(%q) expected error", stored)
			}
		})
	}
}

func TestWipe(t *testing.T) {
	b := []byte("sensitive")
	apikey.Wipe(b)
	if strings.ContainsAny(string(b), "sensitive") {
		t.Error("buffer not zeroed")
	}
}
