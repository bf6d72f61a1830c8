package crypto

import (
	"os"
	"path/filepath"
	"testing"
)

// ============================================================
// Тесты Checksum
// ============================================================

func TestChecksum(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expected    string
		expectError bool
	}{
		{
			// Известный вектор SHA-256("abc")
			name:     "known vector",
			data:     []byte("abc"),
			expected: "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			name:        "empty data",
			data:        nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := Checksum(tt.data)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sum != tt.expected {
				t.Errorf("Checksum = %s, want %s", sum, tt.expected)
			}
		})
	}
}

func TestChecksumDeterministic(t *testing.T) {
	a, err := Checksum([]byte("solver-binary"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Checksum([]byte("solver-binary"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("checksum not deterministic: %s != %s", a, b)
	}
}

// ============================================================
// Тесты FileChecksum
// ============================================================

func TestFileChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary")
	if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	sum, err := FileChecksum(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("unexpected file checksum: %s", sum)
	}
}

func TestFileChecksumMissingFile(t *testing.T) {
	if _, err := FileChecksum("/nonexistent/solver-binary"); err == nil {
		t.Error("expected error for missing file")
	}
}
