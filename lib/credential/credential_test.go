// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "empty", token: "", wantErr: true},
		{name: "whitespace only", token: " \t\n ", wantErr: true},
		{name: "token", token: "sk-or-v1-abc", wantErr: false},
		{name: "padded token", token: "  sk-or-v1-abc\n", wantErr: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := Credential(test.token).Validate()
			if test.wantErr && !errors.Is(err, ErrEmpty) {
				t.Errorf("Validate() = %v, want ErrEmpty", err)
			}
			if !test.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestTokenTrims(t *testing.T) {
	t.Parallel()
	if got := Credential("  sk-test \n").Token(); got != "sk-test" {
		t.Errorf("Token() = %q, want sk-test", got)
	}
}

func TestNeverPrinted(t *testing.T) {
	t.Parallel()

	credential := New("sk-very-secret")

	for _, formatted := range []string{
		fmt.Sprintf("%s", credential),
		fmt.Sprintf("%v", credential),
		fmt.Sprintf("%#v", credential),
	} {
		if strings.Contains(formatted, "very-secret") {
			t.Errorf("formatted credential leaked the token: %q", formatted)
		}
	}

	var output bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&output, nil))
	logger.Info("sending", "credential", credential)
	if strings.Contains(output.String(), "very-secret") {
		t.Errorf("log output leaked the token: %s", output.String())
	}
	if !strings.Contains(output.String(), redacted) {
		t.Errorf("log output missing redaction marker: %s", output.String())
	}
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, "key")
	if err := os.WriteFile(path, []byte("sk-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	credential, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if credential.Token() != "sk-from-file" {
		t.Errorf("Token() = %q, want sk-from-file", credential.Token())
	}
}

func TestReadFileEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("   \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); !errors.Is(err, ErrEmpty) {
		t.Errorf("ReadFile() error = %v, want ErrEmpty", err)
	}
}

func TestReadFrom(t *testing.T) {
	t.Parallel()

	credential, err := ReadFrom(strings.NewReader("sk-stdin\nignored second line\n"))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if credential.Token() != "sk-stdin" {
		t.Errorf("Token() = %q, want sk-stdin", credential.Token())
	}

	if _, err := ReadFrom(strings.NewReader("")); !errors.Is(err, ErrEmpty) {
		t.Errorf("ReadFrom(empty) error = %v, want ErrEmpty", err)
	}
}
