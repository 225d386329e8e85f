package v1

import (
	"fmt"
	"time"

	"github.com/kolna/incident_analysis_system/internal/models"
)

// Форматы временных меток: RFC3339 и "голый" ISO-8601 без зоны (такой шлют
// клиенты с datetime.isoformat()). Голая метка трактуется как UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseTimestamp разбирает временную метку запроса
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

// DTOToAnalysisRequest преобразует DTO анализа в доменный запрос
func DTOToAnalysisRequest(dto AnalyzeRequest) (models.AnalysisRequest, error) {
	req := models.AnalysisRequest{
		Text:      dto.Text,
		Latitude:  dto.Latitude,
		Longitude: dto.Longitude,
	}
	if dto.Timestamp != nil && *dto.Timestamp != "" {
		ts, err := parseTimestamp(*dto.Timestamp)
		if err != nil {
			return models.AnalysisRequest{}, err
		}
		req.Timestamp = &ts
	}
	return req, nil
}

// ResultToAnalyzeResponse преобразует доменный результат анализа в DTO ответа
func ResultToAnalyzeResponse(result *models.AnalysisResult) *AnalyzeResponse {
	resp := &AnalyzeResponse{
		IncidentID: result.Incident.ID,
		Classification: ClassificationResponse{
			Severity:    result.Classification.Severity,
			Confidence:  result.Classification.Confidence,
			IsDuplicate: result.Classification.IsDuplicate,
			DuplicateOf: result.Classification.DuplicateOf,
		},
		SimilarIncidents: make([]IncidentSummary, 0, len(result.SimilarIncidents)),
	}
	if result.Location != nil {
		resp.Location = &LocationResponse{
			Latitude:  result.Location.Latitude,
			Longitude: result.Location.Longitude,
			City:      result.Location.City,
		}
	}
	for _, inc := range result.SimilarIncidents {
		resp.SimilarIncidents = append(resp.SimilarIncidents, IncidentSummary{
			ID:        inc.ID,
			City:      inc.City,
			Latitude:  inc.Latitude,
			Longitude: inc.Longitude,
			Severity:  inc.Severity,
			Timestamp: inc.Timestamp,
		})
	}
	return resp
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          model.ID,
		Text:        model.Text,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		City:        model.City,
		Timestamp:   model.Timestamp,
		Severity:    model.Severity,
		Confidence:  model.Confidence,
		DuplicateOf: model.DuplicateOf,
		CreatedAt:   model.CreatedAt,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}
