package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAndReadTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	if err := WriteTokenFile(path, "  abc123 \n"); err != nil {
		t.Fatalf("WriteTokenFile() error = %v", err)
	}

	got, err := ReadTokenFile(path)
	if err != nil {
		t.Fatalf("ReadTokenFile() error = %v", err)
	}
	if got != "abc123" {
		t.Errorf("ReadTokenFile() = %q, want %q", got, "abc123")
	}
}

func TestWriteTokenFileRejectsEmpty(t *testing.T) {
	if err := WriteTokenFile(filepath.Join(t.TempDir(), "token"), "   "); err == nil {
		t.Error("WriteTokenFile() should reject an empty token")
	}
}

func TestReadTokenFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTokenFile(path); err == nil {
		t.Error("ReadTokenFile() should fail for an empty file")
	}
}

func TestRemoveTokenFileMissingIsNotAnError(t *testing.T) {
	if err := RemoveTokenFile(filepath.Join(t.TempDir(), "token")); err != nil {
		t.Errorf("RemoveTokenFile() error = %v", err)
	}
}

func TestResolveLoginToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	if err := WriteTokenFile(tokenPath, "from-file"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		flag       string
		file       string
		env        string
		want       string
		wantSource string
	}{
		{"flag first", "from-flag", tokenPath, "from-env", "from-flag", "flag"},
		{"file second", "", tokenPath, "from-env", "from-file", "token-file"},
		{"env last", "", "", "from-env", "from-env", "environment"},
		{"nothing", "", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvToken, tt.env)
			got, source, err := ResolveLoginToken(tt.flag, tt.file)
			if err != nil {
				t.Fatalf("ResolveLoginToken() error = %v", err)
			}
			if got != tt.want || source != tt.wantSource {
				t.Errorf("ResolveLoginToken() = (%q, %q), want (%q, %q)", got, source, tt.want, tt.wantSource)
			}
		})
	}
}
