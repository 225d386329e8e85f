package v1

import (
	"time"
)

// AnalyzeRequest DTO для анализа сообщения о происшествии
// @Description DTO для анализа сообщения о происшествии
type AnalyzeRequest struct {
	Text      string   `json:"text" validate:"required,min=2"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	Timestamp *string  `json:"timestamp" validate:"omitempty"`
}

// LocationResponse DTO разрешенной локации
// @Description DTO разрешенной локации
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
}

// ClassificationResponse DTO результата классификации и решения о дубликате
// @Description DTO результата классификации и решения о дубликате
type ClassificationResponse struct {
	Severity    string  `json:"severity"`
	Confidence  float64 `json:"confidence"`
	IsDuplicate bool    `json:"is_duplicate"`
	DuplicateOf *int64  `json:"duplicate_of,omitempty"`
}

// IncidentSummary DTO краткой сводки ранее сохраненного инцидента
// @Description DTO краткой сводки ранее сохраненного инцидента
type IncidentSummary struct {
	ID        int64     `json:"id"`
	City      string    `json:"city"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyzeResponse DTO полного результата анализа
// @Description DTO полного результата анализа
type AnalyzeResponse struct {
	IncidentID       int64                  `json:"incident_id"`
	Location         *LocationResponse      `json:"location,omitempty"`
	Classification   ClassificationResponse `json:"classification"`
	SimilarIncidents []IncidentSummary      `json:"similar_incidents"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    string    `json:"severity"`
	Confidence  float64   `json:"confidence"`
	DuplicateOf *int64    `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HealthResponse DTO для ответа health-check
// @Description DTO для ответа health-check
type HealthResponse struct {
	Status         string `json:"status"`
	DatasetRecords int64  `json:"dataset_records"`
	APIKeySet      bool   `json:"api_key_set"`
}
