package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// seal.go - запечатывание секретов ключом, производным от среды исполнения
//
// В аттестованной среде ключ solver'а хранится только в запечатанном виде:
// расшифровать его может лишь процесс с тем же sealing-ключом. Вне TEE
// запечатывание работает с ключом, переданным явно (режим разработки).

// Ошибки запечатывания
var (
	ErrInvalidSealKey     = errors.New("seal key cannot be empty")
	ErrSealedDataTooShort = errors.New("sealed data too short")
	ErrUnsealFailed       = errors.New("unseal failed: authentication error")
)

// deriveKey приводит произвольный ключевой материал к 32 байтам
func deriveKey(keyMaterial []byte) [32]byte {
	return sha256.Sum256(keyMaterial)
}

// Seal шифрует plaintext ключом, производным от keyMaterial
//
// Использует XChaCha20-Poly1305 со случайным nonce; результат
// кодируется в base64 для хранения в файле или переменной окружения.
func Seal(plaintext, keyMaterial []byte) (string, error) {
	if len(keyMaterial) == 0 {
		return "", ErrInvalidSealKey
	}

	key := deriveKey(keyMaterial)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal расшифровывает результат Seal тем же ключевым материалом
func Unseal(sealed string, keyMaterial []byte) ([]byte, error) {
	if len(keyMaterial) == 0 {
		return nil, ErrInvalidSealKey
	}

	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, err
	}

	key := deriveKey(keyMaterial)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, err
	}

	if len(raw) < aead.NonceSize() {
		return nil, ErrSealedDataTooShort
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrUnsealFailed
	}

	return plaintext, nil
}
