package utils

import (
	"errors"
	"fmt"
	"strings"
)

// validator.go - валидация данных, приходящих от внешних систем
//
// Ордеры и адреса поступают от венью без гарантий формата;
// базовые проверки выполняются до любой работы с капиталом.

// Ошибки валидации
var (
	ErrEmptyValue = errors.New("value is empty")
)

// ValidateAddress проверяет формат EVM-адреса (0x + 40 hex символов)
func ValidateAddress(addr string) error {
	if addr == "" {
		return ErrEmptyValue
	}
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return fmt.Errorf("invalid address %q: want 0x-prefixed 40 hex chars", addr)
	}
	if !isHex(addr[2:]) {
		return fmt.Errorf("invalid address %q: non-hex characters", addr)
	}
	return nil
}

// ValidateOrderHash проверяет формат хэша ордера (0x + 64 hex символа)
func ValidateOrderHash(hash string) error {
	if hash == "" {
		return ErrEmptyValue
	}
	if !strings.HasPrefix(hash, "0x") || len(hash) != 66 {
		return fmt.Errorf("invalid order hash %q: want 0x-prefixed 64 hex chars", hash)
	}
	if !isHex(hash[2:]) {
		return fmt.Errorf("invalid order hash %q: non-hex characters", hash)
	}
	return nil
}

// ValidateSymbol проверяет тикер токена (1-12 символов A-Z, 0-9)
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return ErrEmptyValue
	}
	if len(symbol) > 12 {
		return fmt.Errorf("invalid symbol %q: too long", symbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("invalid symbol %q: want A-Z, 0-9", symbol)
		}
	}
	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
