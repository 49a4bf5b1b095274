package config

import (
	"strings"
	"testing"
)

func setBaseEnv(t *testing.T) {
	t.Helper()

	t.Setenv("DATABASE_URL", "postgres://localhost:5432/loglens")
	t.Setenv("PORT", "3040")
	t.Setenv("LISTEN_HOST", "127.0.0.1")

	// Clear any ambient overrides so defaults are observable.
	for _, key := range []string{"LL_KDF_TIME", "LL_KDF_MEMORY_KIB", "LL_KDF_THREADS", "LL_KDF_SALT_LEN", "LL_KDF_KEY_LEN"} {
		t.Setenv(key, "")
	}
}

func TestLoadKDFDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := KDF{Time: 3, MemoryKiB: 64 * 1024, Threads: 2, SaltLen: 16, KeyLen: 32}
	if cfg.KDF != want {
		t.Errorf("KDF = %+v, want %+v", cfg.KDF, want)
	}
}

func TestLoadKDFFromEnvironment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LL_KDF_TIME", "4")
	t.Setenv("LL_KDF_MEMORY_KIB", "131072")
	t.Setenv("LL_KDF_THREADS", "8")
	t.Setenv("LL_KDF_SALT_LEN", "24")
	t.Setenv("LL_KDF_KEY_LEN", "48")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := KDF{Time: 4, MemoryKiB: 128 * 1024, Threads: 8, SaltLen: 24, KeyLen: 48}
	if cfg.KDF != want {
		t.Errorf("KDF = %+v, want %+v", cfg.KDF, want)
	}
}

func TestLoadKDFRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric time", "LL_KDF_TIME", "three"},
		{"zero time", "LL_KDF_TIME", "0"},
		{"tiny memory", "LL_KDF_MEMORY_KIB", "512"},
		{"negative threads", "LL_KDF_THREADS", "-1"},
		{"short salt", "LL_KDF_SALT_LEN", "4"},
		{"short key", "LL_KDF_KEY_LEN", "8"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.key) {
				t.Errorf("err = %v, want error naming %s", err, tc.key)
			}
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("postgres://user:hunter2@db/loglens")

	if s.String() != "[REDACTED]" {
		t.Errorf("String() = %q", s.String())
	}
	if got, _ := s.MarshalText(); string(got) != "[REDACTED]" {
		t.Errorf("MarshalText() = %q", got)
	}
	if s.Value() != "postgres://user:hunter2@db/loglens" {
		t.Error("Value() must return the underlying secret")
	}
}
