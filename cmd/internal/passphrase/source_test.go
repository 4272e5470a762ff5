package passphrase

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("STAKING_TEST_SECRET", "from-env")
	src := NewSource("STAKING_TEST_SECRET", "signing secret")
	src.isTerminal = func(int) bool {
		t.Fatalf("terminal must not be consulted")
		return false
	}
	got, err := src.Get()
	if err != nil || got != "from-env" {
		t.Fatalf("unexpected result %q err=%v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("STAKING_TEST_SECRET", "   ")
	if _, err := NewSource("STAKING_TEST_SECRET", "").Get(); err == nil {
		t.Fatalf("expected error for blank env value")
	}
}

func TestSourcePromptsAndCaches(t *testing.T) {
	var prompt bytes.Buffer
	reads := 0
	src := NewSource("STAKING_TEST_UNSET_SECRET", "signing secret")
	src.isTerminal = func(int) bool { return true }
	src.readSecret = func(int) ([]byte, error) {
		reads++
		return []byte("typed"), nil
	}
	src.prompt = &prompt

	for i := 0; i < 2; i++ {
		got, err := src.Get()
		if err != nil || got != "typed" {
			t.Fatalf("unexpected result %q err=%v", got, err)
		}
	}
	if reads != 1 {
		t.Fatalf("expected a single prompt, got %d", reads)
	}
	if !strings.Contains(prompt.String(), "Enter signing secret") {
		t.Fatalf("unexpected prompt %q", prompt.String())
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("STAKING_TEST_UNSET_SECRET", "signing secret")
	src.isTerminal = func(int) bool { return false }
	_, err := src.Get()
	if err == nil || !strings.Contains(err.Error(), "STAKING_TEST_UNSET_SECRET") {
		t.Fatalf("expected env hint, got %v", err)
	}

	failing := NewSource("", "signing secret")
	failing.isTerminal = func(int) bool { return true }
	failing.readSecret = func(int) ([]byte, error) { return nil, errors.New("tty closed") }
	failing.prompt = &bytes.Buffer{}
	if _, err := failing.Get(); err == nil {
		t.Fatalf("expected read error")
	}
}
