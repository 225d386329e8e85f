package models

import (
	"time"
)

// Уровни серьезности инцидентов — закрытый упорядоченный набор меток классификатора.
const (
	SeverityHigh   = "عالي"
	SeverityMedium = "متوسط"
	SeverityNormal = "عادي"
)

// Incident представляет одно принятое сообщение о происшествии с разрешённой локацией и классификацией.
// Запись append-only: после сохранения изменяется только при создании (duplicate_of).
type Incident struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Located     bool      `json:"located"`
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    string    `json:"severity"`
	Confidence  float64   `json:"confidence"`
	DuplicateOf *int64    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CityUnknown - значение города, когда локацию разрешить не удалось
const CityUnknown = "unknown"
