package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"arclight-ai/ballast/pkg/fingerprint"
)

func TestIdentifyKey(t *testing.T) {
	origFull := keysFlags.full
	defer func() { keysFlags.full = origFull }()
	keysFlags.full = false

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("sk-test-credential-12345\n"))
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	if err := identifyKey(cmd, nil); err != nil {
		t.Fatalf("identifyKey() error = %v", err)
	}

	expected := "sha256:" + fingerprint.ShortID("sk-test-credential-12345") + "\n"
	if out.String() != expected {
		t.Errorf("identifyKey() output = %q, want %q", out.String(), expected)
	}
}

func TestIdentifyKeyFull(t *testing.T) {
	origFull := keysFlags.full
	defer func() { keysFlags.full = origFull }()
	keysFlags.full = true

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("sk-test-credential-12345"))
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	if err := identifyKey(cmd, nil); err != nil {
		t.Fatalf("identifyKey() error = %v", err)
	}

	expected := "sha256:" + fingerprint.HexSum([]byte("sk-test-credential-12345")) + "\n"
	if out.String() != expected {
		t.Errorf("identifyKey() output = %q, want %q", out.String(), expected)
	}
}

func TestIdentifyKeyTrimsWhitespace(t *testing.T) {
	origFull := keysFlags.full
	defer func() { keysFlags.full = origFull }()
	keysFlags.full = false

	// A trailing newline from `echo` must not change the fingerprint.
	bare := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("credential"))
	cmd.SetOut(bare)
	if err := identifyKey(cmd, nil); err != nil {
		t.Fatalf("identifyKey() error = %v", err)
	}

	padded := &bytes.Buffer{}
	cmd = &cobra.Command{}
	cmd.SetIn(strings.NewReader("  credential\n"))
	cmd.SetOut(padded)
	if err := identifyKey(cmd, nil); err != nil {
		t.Fatalf("identifyKey() error = %v", err)
	}

	if bare.String() != padded.String() {
		t.Errorf("whitespace changed the fingerprint: %q vs %q", bare.String(), padded.String())
	}
}

func TestIdentifyKeyEmptyInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("\n"))
	cmd.SetOut(&bytes.Buffer{})

	if err := identifyKey(cmd, nil); err == nil {
		t.Error("identifyKey() expected error for empty stdin, got nil")
	}
}

func TestIdentifyKeyNeverEchoesCredential(t *testing.T) {
	origFull := keysFlags.full
	defer func() { keysFlags.full = origFull }()
	keysFlags.full = false

	secret := "sk-live-very-secret-credential"
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(secret))
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	if err := identifyKey(cmd, nil); err != nil {
		t.Fatalf("identifyKey() error = %v", err)
	}

	if strings.Contains(out.String(), secret) {
		t.Error("identifyKey() output contains the raw credential")
	}
}

func TestKeysCommandTree(t *testing.T) {
	if keysCmd == nil {
		t.Fatal("keysCmd is nil")
	}

	subs := make(map[string]bool)
	for _, sub := range keysCmd.Commands() {
		subs[sub.Name()] = true
	}

	for _, name := range []string{"list", "id"} {
		if !subs[name] {
			t.Errorf("keys command is missing subcommand %q", name)
		}
	}
}
