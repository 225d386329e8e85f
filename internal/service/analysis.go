package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/kolna/incident_analysis_system/internal/classifier"
	"github.com/kolna/incident_analysis_system/internal/config"
	"github.com/kolna/incident_analysis_system/internal/geo"
	"github.com/kolna/incident_analysis_system/internal/models"
	"github.com/kolna/incident_analysis_system/internal/observability"
	"github.com/kolna/incident_analysis_system/internal/webhook"
)

// IncidentRepository определяет контракт для работы с хранилищем инцидентов
type IncidentRepository interface {
	Append(ctx context.Context, incident *models.Incident) (int64, error)
	QueryNearby(ctx context.Context, lat, lng float64, since time.Time) ([]*models.Incident, error)
	GetByID(ctx context.Context, id int64) (*models.Incident, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	Count(ctx context.Context) (int64, error)
	GetIncidentFromCache(ctx context.Context, id int64) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
}

// GeoResolver определяет контракт разрешения локации
type GeoResolver interface {
	Resolve(text string, lat, lng *float64) (models.ResolvedLocation, error)
}

// AnalysisService определяет контракт бизнес-логики анализа инцидентов
type AnalysisService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	GetIncident(ctx context.Context, id int64) (*models.Incident, error)
	ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error)
	Health(ctx context.Context) (*models.HealthStatus, error)
}

type analysisService struct {
	repo       IncidentRepository
	resolver   GeoResolver
	classifier classifier.Classifier
	correlator *Correlator
	publisher  webhook.Publisher
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *logrus.Logger
	cfg        *config.Config
}

// NewAnalysisService создает оркестратор анализа. Часы передаются явно,
// чтобы тесты могли зафиксировать время.
func NewAnalysisService(
	repo IncidentRepository,
	resolver GeoResolver,
	cls classifier.Classifier,
	publisher webhook.Publisher,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	logger *logrus.Logger,
	cfg *config.Config,
) AnalysisService {
	return &analysisService{
		repo:       repo,
		resolver:   resolver,
		classifier: cls,
		correlator: NewCorrelator(repo, cfg.DuplicateWindow, cfg.DuplicateRadiusMeters, logger),
		publisher:  publisher,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Analyze выполняет полный цикл: разрешение локации, классификация,
// корреляция дубликатов и сохранение инцидента.
func (s *analysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	started := s.clock.Now()
	log := s.logger.WithFields(logrus.Fields{
		"service": "analysis",
		"method":  "Analyze",
	})
	log.Info("Analyzing incident report")

	ts := s.clock.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	// Разрешение локации. Потеря локации не фатальна: сообщение сохраняется
	// с city = "unknown", но корреляция без координат невозможна.
	located := true
	loc, err := s.resolver.Resolve(req.Text, req.Latitude, req.Longitude)
	if err != nil {
		if !errors.Is(err, geo.ErrUnresolvedLocation) {
			s.metrics.AnalysesTotal.WithLabelValues("resolver_error").Inc()
			return nil, fmt.Errorf("service: could not resolve location: %w", err)
		}
		located = false
		loc = models.ResolvedLocation{City: models.CityUnknown}
		log.Warn("Location could not be resolved, skipping duplicate correlation")
	}
	s.metrics.GeoResolutions.WithLabelValues(resolutionSource(req, located)).Inc()

	// Классификация серьезности. Сбой классификатора фатален: без метки
	// серьезности инцидент не сохраняется.
	clsResult, err := s.classifier.Classify(ctx, req.Text)
	if err != nil {
		log.WithError(err).Error("Classifier failed")
		s.metrics.AnalysesTotal.WithLabelValues("classifier_error").Inc()
		return nil, fmt.Errorf("service: could not classify report: %w", err)
	}

	// Гео-временная корреляция дубликатов
	var match *models.Incident
	var candidates []*models.Incident
	if located {
		match, candidates, err = s.correlator.Correlate(ctx, loc.Latitude, loc.Longitude, ts)
		if err != nil {
			log.WithError(err).Error("Duplicate correlation failed")
			s.metrics.AnalysesTotal.WithLabelValues("storage_error").Inc()
			return nil, fmt.Errorf("service: %w", err)
		}
	}

	incident := &models.Incident{
		Text:       req.Text,
		Latitude:   loc.Latitude,
		Longitude:  loc.Longitude,
		Located:    located,
		City:       loc.City,
		Timestamp:  ts,
		Severity:   clsResult.Severity,
		Confidence: clsResult.Confidence,
	}
	if match != nil {
		duplicateOf := match.ID
		incident.DuplicateOf = &duplicateOf
		s.metrics.DuplicatesDetected.Inc()
	}

	// Дубликаты тоже сохраняются: цепочка duplicate_of должна разрешаться
	// через реально сохраненные записи.
	if _, err := s.repo.Append(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to append incident to store")
		s.metrics.AnalysesTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("service: could not store incident: %w", err)
	}

	s.publishEvent(ctx, incident)

	log.WithFields(logrus.Fields{
		"incident_id":  incident.ID,
		"severity":     incident.Severity,
		"is_duplicate": incident.DuplicateOf != nil,
	}).Info("Incident analyzed successfully")

	s.metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	s.metrics.AnalysisDuration.Observe(s.clock.Since(started).Seconds())

	result := &models.AnalysisResult{
		Incident: incident,
		Classification: models.Classification{
			Severity:    incident.Severity,
			Confidence:  incident.Confidence,
			IsDuplicate: incident.DuplicateOf != nil,
			DuplicateOf: incident.DuplicateOf,
		},
		SimilarIncidents: candidates,
	}
	if located {
		result.Location = &loc
	}
	return result, nil
}

// GetIncident получает инцидент по ID через кэш (cache-aside)
func (s *analysisService) GetIncident(ctx context.Context, id int64) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "analysis",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Cache lookup failed, falling back to store")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Error("Failed to get incident from store")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents возвращает список инцидентов с пагинацией
func (s *analysisService) ListIncidents(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "analysis",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from store")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	return incidents, nil
}

// Health возвращает статус сервиса: число записей и признак настроенного
// ключа классификатора. Только чтение, без побочных эффектов.
func (s *analysisService) Health(ctx context.Context) (*models.HealthStatus, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: could not count incidents: %w", err)
	}
	return &models.HealthStatus{
		Status:         "ok",
		DatasetRecords: count,
		APIKeySet:      s.cfg.ClassifierAPIKey != "",
	}, nil
}

// publishEvent публикует результат анализа в очередь вебхуков (best-effort)
func (s *analysisService) publishEvent(ctx context.Context, incident *models.Incident) {
	event := webhook.AnalysisEvent{
		IncidentID:  incident.ID,
		City:        incident.City,
		Latitude:    incident.Latitude,
		Longitude:   incident.Longitude,
		Severity:    incident.Severity,
		Confidence:  incident.Confidence,
		IsDuplicate: incident.DuplicateOf != nil,
		DuplicateOf: incident.DuplicateOf,
		Timestamp:   incident.Timestamp,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish analysis event")
	}
}

func resolutionSource(req models.AnalysisRequest, located bool) string {
	switch {
	case !located:
		return "unresolved"
	case req.Latitude != nil && req.Longitude != nil:
		return "explicit"
	default:
		return "text"
	}
}
