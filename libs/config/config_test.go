package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8085")
	if err != nil || p != "8085" {
		t.Fatalf("expected fallback port 8085, got %q err=%v", p, err)
	}

	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8085"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestBoolIntDuration(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	if !Bool("TEST_BOOL", false) {
		t.Fatal("expected yes to parse as true")
	}
	t.Setenv("TEST_BOOL", "garbage")
	if !Bool("TEST_BOOL", true) {
		t.Fatal("expected fallback for unparseable bool")
	}

	t.Setenv("TEST_INT", "42")
	if got := Int("TEST_INT", 1); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "x")
	if got := Int("TEST_INT", 1); got != 1 {
		t.Fatalf("expected fallback 1, got %d", got)
	}

	t.Setenv("TEST_DUR", "2m")
	if got := Duration("TEST_DUR", time.Second); got != 2*time.Minute {
		t.Fatalf("expected 2m, got %s", got)
	}
	t.Setenv("TEST_DUR", "30")
	if got := Duration("TEST_DUR", time.Second); got != 30*time.Second {
		t.Fatalf("expected bare integer as seconds, got %s", got)
	}
	t.Setenv("TEST_DUR", "-5s")
	if got := Duration("TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("expected fallback for negative duration, got %s", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TEST_LIST", " a, ,b ,c")
	got := List("TEST_LIST")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list: %#v", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("VISADESK_DOTENV_A=from-file\nVISADESK_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("VISADESK_DOTENV_A", "")
	os.Unsetenv("VISADESK_DOTENV_A")
	t.Setenv("VISADESK_DOTENV_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("VISADESK_DOTENV_A") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("VISADESK_DOTENV_A"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("VISADESK_DOTENV_B"); got != "from-env" {
		t.Fatalf("existing env must win, got %q", got)
	}
}
