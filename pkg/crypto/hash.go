package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
)

// hash.go - контрольные суммы для аттестации
//
// Checksum бинарника и codehash образа предъявляются реестру solver'ов
// при регистрации: реестр сверяет их со списком авторизованных сборок.

// Ошибки хеширования
var (
	ErrEmptyData = errors.New("data cannot be empty")
)

// Checksum возвращает hex-строку SHA-256 от данных
func Checksum(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyData
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FileChecksum возвращает hex-строку SHA-256 от содержимого файла
//
// Используется для вычисления checksum собственного бинарника
// (os.Executable) перед регистрацией.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
