package models

import "time"

// Attestation - результат аттестации исполняемой среды
//
// Создаётся единожды на старте процесса и неизменяема до его завершения.
// Отсутствие валидной аттестации фатально: регистрация и обработка
// ордеров не запускаются.
type Attestation struct {
	Quote     string    `json:"quote"`
	Checksum  string    `json:"checksum"`
	Codehash  string    `json:"codehash"`
	IsValid   bool      `json:"is_valid"`
	Timestamp time.Time `json:"timestamp"`
}
