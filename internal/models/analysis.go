package models

import (
	"time"
)

// ResolvedLocation - конкретная (lat, lng, city) тройка после работы георезолвера
type ResolvedLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
}

// Classification - результат классификации серьезности вместе с решением о дубликате
type Classification struct {
	Severity    string  `json:"severity"`
	Confidence  float64 `json:"confidence"`
	IsDuplicate bool    `json:"is_duplicate"`
	DuplicateOf *int64  `json:"duplicate_of,omitempty"`
}

// AnalysisResult - полный результат одного цикла анализа сообщения
type AnalysisResult struct {
	Incident         *Incident         `json:"incident"`
	Location         *ResolvedLocation `json:"location,omitempty"`
	Classification   Classification    `json:"classification"`
	SimilarIncidents []*Incident       `json:"similar_incidents"`
}

// AnalysisRequest - входные данные анализа после валидации транспортного слоя
type AnalysisRequest struct {
	Text      string
	Latitude  *float64
	Longitude *float64
	Timestamp *time.Time
}

// HealthStatus - статус сервиса для health-check
type HealthStatus struct {
	Status         string `json:"status"`
	DatasetRecords int64  `json:"dataset_records"`
	APIKeySet      bool   `json:"api_key_set"`
}
