package utils

import "testing"

// ============================================================
// Тесты ValidateAddress
// ============================================================

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name        string
		addr        string
		expectError bool
	}{
		{"valid lowercase", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", false},
		{"valid mixed case", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", false},
		{"empty", "", true},
		{"no prefix", "c02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", true},
		{"too short", "0xc02aaa39", true},
		{"too long", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2ff", true},
		{"non-hex", "0xz02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateAddress(%q) error = %v, expectError %v", tt.addr, err, tt.expectError)
			}
		})
	}
}

// ============================================================
// Тесты ValidateOrderHash
// ============================================================

func TestValidateOrderHash(t *testing.T) {
	validHash := "0x" + "ab12" + "cd34" + "ef56" + "0078" + "9abc" + "def0" + "1234" + "5678" +
		"ab12" + "cd34" + "ef56" + "0078" + "9abc" + "def0" + "1234" + "5678"

	tests := []struct {
		name        string
		hash        string
		expectError bool
	}{
		{"valid", validHash, false},
		{"empty", "", true},
		{"no prefix", validHash[2:], true},
		{"too short", "0xabcdef", true},
		{"non-hex", "0x" + "gg12cd34ef5600789abcdef012345678ab12cd34ef5600789abcdef012345678", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOrderHash(tt.hash)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateOrderHash(%q) error = %v, expectError %v", tt.hash, err, tt.expectError)
			}
		})
	}
}

// ============================================================
// Тесты ValidateSymbol
// ============================================================

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		name        string
		symbol      string
		expectError bool
	}{
		{"valid", "USDC", false},
		{"valid with digit", "1INCH", false},
		{"empty", "", true},
		{"lowercase", "usdc", true},
		{"too long", "VERYLONGSYMBOL", true},
		{"special chars", "USD-C", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSymbol(tt.symbol)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateSymbol(%q) error = %v, expectError %v", tt.symbol, err, tt.expectError)
			}
		})
	}
}
