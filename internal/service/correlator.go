package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kolna/incident_analysis_system/internal/geo"
	"github.com/kolna/incident_analysis_system/internal/models"
)

// Correlator решает, является ли новое сообщение дубликатом ранее сохраненного
// инцидента по совместному гео-временному правилу: <= radius метров
// И <= window по времени. Обе границы включительные.
type Correlator struct {
	repo   IncidentRepository
	window time.Duration
	radius float64
	logger *logrus.Logger
}

// NewCorrelator создает коррелятор с заданным окном дубликатов
func NewCorrelator(repo IncidentRepository, window time.Duration, radiusMeters float64, logger *logrus.Logger) *Correlator {
	return &Correlator{
		repo:   repo,
		window: window,
		radius: radiusMeters,
		logger: logger,
	}
}

// Correlate возвращает выбранный инцидент-дубликат (или nil) и полный набор
// кандидатов временного пре-фильтра. Текст не сравнивается: сопоставление
// чисто гео-временное. При нескольких совпадениях выбирается ближайший по
// расстоянию, при равенстве - самый свежий по времени. Дубликат всегда
// указывает назад во времени, кандидаты из будущего не сопоставляются.
func (c *Correlator) Correlate(ctx context.Context, lat, lng float64, ts time.Time) (*models.Incident, []*models.Incident, error) {
	since := ts.Add(-c.window)
	candidates, err := c.repo.QueryNearby(ctx, lat, lng, since)
	if err != nil {
		return nil, nil, fmt.Errorf("correlator: could not query nearby incidents: %w", err)
	}

	var best *models.Incident
	var bestDist float64
	for _, cand := range candidates {
		if cand.Timestamp.After(ts) {
			continue
		}
		if ts.Sub(cand.Timestamp) > c.window {
			continue
		}
		dist := geo.Distance(lat, lng, cand.Latitude, cand.Longitude)
		if dist > c.radius {
			continue
		}
		if best == nil || dist < bestDist || (dist == bestDist && cand.Timestamp.After(best.Timestamp)) {
			best = cand
			bestDist = dist
		}
	}

	if best != nil {
		c.logger.WithFields(logrus.Fields{
			"service":      "correlator",
			"duplicate_of": best.ID,
			"distance_m":   bestDist,
		}).Info("Duplicate incident detected")
	}

	return best, candidates, nil
}
