package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kolna/incident_analysis_system/internal/classifier"
	classifier_mocks "github.com/kolna/incident_analysis_system/internal/classifier/mocks"
	"github.com/kolna/incident_analysis_system/internal/config"
	"github.com/kolna/incident_analysis_system/internal/geo"
	"github.com/kolna/incident_analysis_system/internal/models"
	"github.com/kolna/incident_analysis_system/internal/observability"
	"github.com/kolna/incident_analysis_system/internal/service/mocks"
	webhook_mocks "github.com/kolna/incident_analysis_system/internal/webhook/mocks"
)

type analysisTestDeps struct {
	repo       *mocks.MockIncidentRepository
	resolver   *mocks.MockGeoResolver
	classifier *classifier_mocks.MockClassifier
	publisher  *webhook_mocks.MockPublisher
	clock      *clockwork.FakeClock
}

// newTestAnalysisService - вспомогательная функция для создания сервиса с моками и фиксированными часами
func newTestAnalysisService(t *testing.T) (AnalysisService, *analysisTestDeps) {
	ctrl := gomock.NewController(t)

	deps := &analysisTestDeps{
		repo:       mocks.NewMockIncidentRepository(ctrl),
		resolver:   mocks.NewMockGeoResolver(ctrl),
		classifier: classifier_mocks.NewMockClassifier(ctrl),
		publisher:  webhook_mocks.NewMockPublisher(ctrl),
		clock:      clockwork.NewFakeClockAt(baseTime),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		DuplicateWindow:       20 * time.Minute,
		DuplicateRadiusMeters: 200,
		ClassifierAPIKey:      "test-key",
	}

	svc := NewAnalysisService(deps.repo, deps.resolver, deps.classifier, deps.publisher, deps.clock, observability.NewMetricsForTesting(), logger, cfg)
	return svc, deps
}

func riyadhLocation() models.ResolvedLocation {
	return models.ResolvedLocation{
		Latitude:  testLat,
		Longitude: testLng,
		City:      "الرياض",
	}
}

func TestAnalyze_Success_NoDuplicate(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	req := models.AnalysisRequest{Text: "بلاغ سرقة في الرياض"}

	deps.resolver.EXPECT().
		Resolve(req.Text, gomock.Nil(), gomock.Nil()).
		Return(riyadhLocation(), nil).
		Times(1)
	deps.classifier.EXPECT().
		Classify(ctx, req.Text).
		Return(classifier.Result{Severity: models.SeverityHigh, Confidence: 0.92}, nil).
		Times(1)
	deps.repo.EXPECT().
		QueryNearby(ctx, testLat, testLng, baseTime.Add(-20*time.Minute)).
		Return([]*models.Incident{}, nil).
		Times(1)
	deps.repo.EXPECT().
		Append(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (int64, error) {
			inc.ID = 1
			inc.CreatedAt = baseTime
			return inc.ID, nil
		}).Times(1)
	deps.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		Return(nil).
		Times(1)

	result, err := svc.Analyze(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Incident.ID)
	assert.Equal(t, models.SeverityHigh, result.Classification.Severity)
	assert.InDelta(t, 0.92, result.Classification.Confidence, 0.0001)
	assert.False(t, result.Classification.IsDuplicate)
	assert.Nil(t, result.Classification.DuplicateOf)
	require.NotNil(t, result.Location)
	assert.Equal(t, "الرياض", result.Location.City)
	// Временная метка по умолчанию берется из инжектированных часов
	assert.Equal(t, baseTime, result.Incident.Timestamp)
	assert.Empty(t, result.SimilarIncidents)
}

func TestAnalyze_DuplicateLinked(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	ts := baseTime.Add(10 * time.Minute)
	req := models.AnalysisRequest{Text: "بلاغ سرقة في الرياض", Timestamp: &ts}

	prior := storedIncident(7, testLat, testLng, baseTime)

	deps.resolver.EXPECT().
		Resolve(req.Text, gomock.Nil(), gomock.Nil()).
		Return(riyadhLocation(), nil).
		Times(1)
	deps.classifier.EXPECT().
		Classify(ctx, req.Text).
		Return(classifier.Result{Severity: models.SeverityMedium, Confidence: 0.77}, nil).
		Times(1)
	deps.repo.EXPECT().
		QueryNearby(ctx, testLat, testLng, ts.Add(-20*time.Minute)).
		Return([]*models.Incident{prior}, nil).
		Times(1)
	deps.repo.EXPECT().
		Append(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (int64, error) {
			// Дубликат тоже сохраняется со ссылкой назад
			require.NotNil(t, inc.DuplicateOf)
			assert.Equal(t, int64(7), *inc.DuplicateOf)
			inc.ID = 8
			return inc.ID, nil
		}).Times(1)
	deps.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		Return(nil).
		Times(1)

	result, err := svc.Analyze(ctx, req)

	require.NoError(t, err)
	assert.True(t, result.Classification.IsDuplicate)
	require.NotNil(t, result.Classification.DuplicateOf)
	assert.Equal(t, int64(7), *result.Classification.DuplicateOf)
	assert.Len(t, result.SimilarIncidents, 1)
}

func TestAnalyze_UnresolvedLocation_SkipsCorrelation(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	req := models.AnalysisRequest{Text: "نص بدون أي مكان معروف"}

	deps.resolver.EXPECT().
		Resolve(req.Text, gomock.Nil(), gomock.Nil()).
		Return(models.ResolvedLocation{}, geo.ErrUnresolvedLocation).
		Times(1)
	deps.classifier.EXPECT().
		Classify(ctx, req.Text).
		Return(classifier.Result{Severity: models.SeverityNormal, Confidence: 0.55}, nil).
		Times(1)
	// QueryNearby не вызывается: без координат гео-временное сравнение невозможно
	deps.repo.EXPECT().
		Append(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (int64, error) {
			assert.False(t, inc.Located)
			assert.Equal(t, models.CityUnknown, inc.City)
			inc.ID = 3
			return inc.ID, nil
		}).Times(1)
	deps.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		Return(nil).
		Times(1)

	result, err := svc.Analyze(ctx, req)

	require.NoError(t, err)
	assert.Nil(t, result.Location)
	assert.False(t, result.Classification.IsDuplicate)
	assert.Equal(t, models.SeverityNormal, result.Classification.Severity)
}

func TestAnalyze_ClassifierFailure(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	req := models.AnalysisRequest{Text: "بلاغ سرقة في الرياض"}

	deps.resolver.EXPECT().
		Resolve(req.Text, gomock.Nil(), gomock.Nil()).
		Return(riyadhLocation(), nil).
		Times(1)
	deps.classifier.EXPECT().
		Classify(ctx, req.Text).
		Return(classifier.Result{}, fmt.Errorf("%w: connection refused", classifier.ErrUnavailable)).
		Times(1)
	// Без метки серьезности инцидент не сохраняется
	deps.repo.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.Analyze(ctx, req)

	require.Error(t, err)
	assert.ErrorIs(t, err, classifier.ErrUnavailable)
	assert.Nil(t, result)
}

func TestAnalyze_StorageFailureOnAppend(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	req := models.AnalysisRequest{Text: "بلاغ سرقة في الرياض"}
	storageErr := errors.New("incident storage unavailable")

	deps.resolver.EXPECT().
		Resolve(req.Text, gomock.Nil(), gomock.Nil()).
		Return(riyadhLocation(), nil).
		Times(1)
	deps.classifier.EXPECT().
		Classify(ctx, req.Text).
		Return(classifier.Result{Severity: models.SeverityHigh, Confidence: 0.9}, nil).
		Times(1)
	deps.repo.EXPECT().
		QueryNearby(gomock.Any(), testLat, testLng, gomock.Any()).
		Return([]*models.Incident{}, nil).
		Times(1)
	deps.repo.EXPECT().
		Append(ctx, gomock.Any()).
		Return(int64(0), storageErr).
		Times(1)
	// Успех не декларируется без подтвержденной записи, вебхук не публикуется
	deps.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	result, err := svc.Analyze(ctx, req)

	require.Error(t, err)
	assert.ErrorIs(t, err, storageErr)
	assert.Nil(t, result)
}

func TestAnalyze_ExplicitCoordinatesPassedToResolver(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	lat, lng := testLat, testLng
	req := models.AnalysisRequest{Text: "بلاغ اختطاف طفل في الرياض", Latitude: &lat, Longitude: &lng}

	deps.resolver.EXPECT().
		Resolve(req.Text, &lat, &lng).
		Return(riyadhLocation(), nil).
		Times(1)
	deps.classifier.EXPECT().
		Classify(ctx, req.Text).
		Return(classifier.Result{Severity: models.SeverityHigh, Confidence: 0.95}, nil).
		Times(1)
	deps.repo.EXPECT().
		QueryNearby(gomock.Any(), testLat, testLng, gomock.Any()).
		Return([]*models.Incident{}, nil).
		Times(1)
	deps.repo.EXPECT().
		Append(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) (int64, error) {
			inc.ID = 5
			return inc.ID, nil
		}).Times(1)
	deps.publisher.EXPECT().
		Publish(ctx, gomock.Any()).
		Return(nil).
		Times(1)

	result, err := svc.Analyze(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, models.SeverityHigh, result.Classification.Severity)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	expected := storedIncident(7, testLat, testLng, baseTime)

	deps.repo.EXPECT().
		GetIncidentFromCache(ctx, int64(7)).
		Return(expected, nil).
		Times(1)

	incident, err := svc.GetIncident(ctx, 7)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	expected := storedIncident(7, testLat, testLng, baseTime)

	// 1. Промах кеша
	deps.repo.EXPECT().
		GetIncidentFromCache(ctx, int64(7)).
		Return(nil, nil).
		Times(1)
	// 2. Попадание в БД
	deps.repo.EXPECT().
		GetByID(ctx, int64(7)).
		Return(expected, nil).
		Times(1)
	// 3. Запись в кеш
	deps.repo.EXPECT().
		SetIncidentCache(ctx, expected).
		Return(nil).
		Times(1)

	incident, err := svc.GetIncident(ctx, 7)

	require.NoError(t, err)
	assert.Equal(t, expected, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()
	dbError := errors.New("incident not found")

	deps.repo.EXPECT().
		GetIncidentFromCache(ctx, int64(42)).
		Return(nil, nil).
		Times(1)
	deps.repo.EXPECT().
		GetByID(ctx, int64(42)).
		Return(nil, dbError).
		Times(1)

	incident, err := svc.GetIncident(ctx, 42)

	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorContains(t, err, "could not get incident")
}

func TestListIncidents_NormalizesPagination(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()

	deps.repo.EXPECT().
		List(ctx, 1, 20).
		Return([]*models.Incident{}, nil).
		Times(1)

	incidents, err := svc.ListIncidents(ctx, -5, 1000)

	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestHealth_ReportsCountAndKey(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()

	deps.repo.EXPECT().
		Count(ctx).
		Return(int64(42), nil).
		Times(1)

	status, err := svc.Health(ctx)

	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, int64(42), status.DatasetRecords)
	assert.True(t, status.APIKeySet)
}

func TestHealth_StorageError(t *testing.T) {
	svc, deps := newTestAnalysisService(t)
	ctx := context.Background()

	deps.repo.EXPECT().
		Count(ctx).
		Return(int64(0), errors.New("incident storage unavailable")).
		Times(1)

	status, err := svc.Health(ctx)

	require.Error(t, err)
	assert.Nil(t, status)
}
