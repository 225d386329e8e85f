package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kolna/incident_analysis_system/internal/classifier"
	"github.com/kolna/incident_analysis_system/internal/config"
	"github.com/kolna/incident_analysis_system/internal/models"
	"github.com/kolna/incident_analysis_system/internal/service/mocks"
)

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*Handler, *mocks.MockAnalysisService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockAnalysisService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(mockService, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockService, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func analyzedResult() *models.AnalysisResult {
	duplicateOf := int64(7)
	return &models.AnalysisResult{
		Incident: &models.Incident{
			ID:        8,
			Text:      "بلاغ سرقة في الرياض",
			Latitude:  24.7136,
			Longitude: 46.6753,
			Located:   true,
			City:      "الرياض",
			Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			Severity:  models.SeverityHigh,
		},
		Location: &models.ResolvedLocation{
			Latitude:  24.7136,
			Longitude: 46.6753,
			City:      "الرياض",
		},
		Classification: models.Classification{
			Severity:    models.SeverityHigh,
			Confidence:  0.92,
			IsDuplicate: true,
			DuplicateOf: &duplicateOf,
		},
		SimilarIncidents: []*models.Incident{
			{ID: 7, City: "الرياض", Latitude: 24.7136, Longitude: 46.6753, Severity: models.SeverityHigh},
		},
	}
}

func TestAnalyze_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AnalyzeRequest{
		Text: "بلاغ سرقة في الرياض",
	}

	mockService.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(analyzedResult(), nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzeResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(8), resp.IncidentID)
	assert.True(t, resp.Classification.IsDuplicate)
	require.NotNil(t, resp.Classification.DuplicateOf)
	assert.Equal(t, int64(7), *resp.Classification.DuplicateOf)
	require.NotNil(t, resp.Location)
	assert.Equal(t, "الرياض", resp.Location.City)
	assert.Len(t, resp.SimilarIncidents, 1)
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBufferString(`{"text": "بلاغ"`), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestAnalyze_ValidationError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AnalyzeRequest{} // Отсутствует Text

	mockService.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Text' failed on the 'required' tag")
}

func TestAnalyze_InvalidTimestamp(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	badTimestamp := "30-08-2026 12:00"
	reqBody := AnalyzeRequest{
		Text:      "بلاغ سرقة في الرياض",
		Timestamp: &badTimestamp,
	}

	mockService.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid timestamp")
}

func TestAnalyze_InvalidCoordinates(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	lat, lng := 95.0, 46.6753 // Широта вне диапазона
	reqBody := AnalyzeRequest{
		Text:      "بلاغ سرقة في الرياض",
		Latitude:  &lat,
		Longitude: &lng,
	}

	mockService.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Latitude' failed on the 'latitude' tag")
}

func TestAnalyze_ClassifierUnavailable(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AnalyzeRequest{
		Text: "بلاغ سرقة في الرياض",
	}

	mockService.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: could not classify report: %w", classifier.ErrUnavailable)).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "classifier unavailable")
}

func TestAnalyze_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AnalyzeRequest{
		Text: "بلاغ سرقة في الرياض",
	}
	serviceError := errors.New("service: could not store incident")

	mockService.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(nil, serviceError).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "analysis failed")
}

func TestAnalyze_UnlocatedReport(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	reqBody := AnalyzeRequest{
		Text: "نص بدون أي مكان معروف",
	}
	result := &models.AnalysisResult{
		Incident: &models.Incident{
			ID:       3,
			Text:     reqBody.Text,
			City:     models.CityUnknown,
			Severity: models.SeverityNormal,
		},
		Classification: models.Classification{
			Severity:   models.SeverityNormal,
			Confidence: 0.55,
		},
		SimilarIncidents: []*models.Incident{},
	}

	mockService.EXPECT().
		Analyze(gomock.Any(), gomock.Any()).
		Return(result, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/analyze", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AnalyzeResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Nil(t, resp.Location)
	assert.False(t, resp.Classification.IsDuplicate)
	assert.Empty(t, resp.SimilarIncidents)
}

func TestGetIncident_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	expectedIncident := &models.Incident{
		ID:        7,
		Text:      "بلاغ سرقة في الرياض",
		Latitude:  24.7136,
		Longitude: 46.6753,
		Located:   true,
		City:      "الرياض",
		Severity:  models.SeverityHigh,
	}

	mockService.EXPECT().GetIncident(gomock.Any(), int64(7)).Return(expectedIncident, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/7", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, expectedIncident.City, resp.City)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "GET", "/api/v1/incidents/not-a-number", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_NotFound(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	serviceError := errors.New("incident not found")

	mockService.EXPECT().GetIncident(gomock.Any(), int64(42)).Return(nil, serviceError).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/42", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "incident not found")
}

func TestListIncidents_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	expectedIncidents := []*models.Incident{
		{ID: 2, City: "جدة", Severity: models.SeverityMedium},
		{ID: 1, City: "الرياض", Severity: models.SeverityHigh},
	}

	mockService.EXPECT().ListIncidents(gomock.Any(), 1, 10).Return(expectedIncidents, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=1&pageSize=10", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, expectedIncidents[0].City, resp[0].City)
}

func TestListIncidents_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	serviceError := errors.New("failed to list incidents")

	mockService.EXPECT().ListIncidents(gomock.Any(), 1, 20).Return(nil, serviceError).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestHealthCheck_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		Health(gomock.Any()).
		Return(&models.HealthStatus{Status: "ok", DatasetRecords: 42, APIKeySet: true}, nil).
		Times(1)

	// Health-check доступен без API-ключа
	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"dataset_records":42`)
}

func TestHealthCheck_StorageUnavailable(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		Health(gomock.Any()).
		Return(nil, errors.New("incident storage unavailable")).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "storage unavailable")
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	// Создаем Gin-роутер и добавляем middleware
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_BearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil) // Нет API ключа
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "invalid-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_PreservesIncomingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-Request-ID": "incoming-id"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "incoming-id", w.Header().Get("X-Request-ID"))
}

func TestTimestampParsing(t *testing.T) {
	// RFC3339 с зоной
	ts, err := parseTimestamp("2026-08-30T12:00:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC), ts)

	// Голый ISO-8601 трактуется как UTC
	ts, err = parseTimestamp("2026-08-30T12:00:00.500000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 500000000, time.UTC), ts)

	_, err = parseTimestamp("30-08-2026 12:00")
	require.Error(t, err)
}
