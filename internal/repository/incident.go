package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kolna/incident_analysis_system/internal/models"
	"github.com/kolna/incident_analysis_system/internal/service"
)

// ErrStorageUnavailable возвращается при сбое нижележащего хранилища
var ErrStorageUnavailable = errors.New("incident storage unavailable")

// ErrIncidentNotFound возвращается, когда инцидент с таким id не существует
var ErrIncidentNotFound = errors.New("incident not found")

const incidentCacheTTL = 5 * time.Minute

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Append сохраняет новый инцидент и возвращает присвоенный монотонный id.
// BIGSERIAL гарантирует уникальность id при конкурентных вставках.
func (r *IncidentRepository) Append(ctx context.Context, incident *models.Incident) (int64, error) {
	query := `
		INSERT INTO incidents (text, location, city, occurred_at, severity, confidence, duplicate_of)
		VALUES ($1, CASE WHEN $2 THEN ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography ELSE NULL END, $5, $6, $7, $8, $9)
		RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Text,
		incident.Located,
		incident.Longitude,
		incident.Latitude,
		incident.City,
		incident.Timestamp,
		incident.Severity,
		incident.Confidence,
		incident.DuplicateOf,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to append incident: %v", ErrStorageUnavailable, err)
	}
	return incident.ID, nil
}

// QueryNearby возвращает все инциденты с occurred_at >= since, у которых есть локация,
// отсортированные по расстоянию до точки запроса. Здесь только временной пре-фильтр,
// точная фильтрация по радиусу выполняется коррелятором.
func (r *IncidentRepository) QueryNearby(ctx context.Context, lat, lng float64, since time.Time) ([]*models.Incident, error) {
	query := `
		SELECT
			id,
			text,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			city,
			occurred_at,
			severity,
			confidence,
			duplicate_of,
			created_at
		FROM incidents
		WHERE
			location IS NOT NULL
			AND occurred_at >= $3
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography;
	`
	rows, err := r.db.Query(ctx, query, lng, lat, since)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query nearby incidents: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	incidents, err := scanIncidents(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return incidents, nil
}

// GetByID возвращает инцидент по его id
func (r *IncidentRepository) GetByID(ctx context.Context, id int64) (*models.Incident, error) {
	query := `
		SELECT
			id,
			text,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			city,
			occurred_at,
			severity,
			confidence,
			duplicate_of,
			created_at
		FROM incidents
		WHERE id = $1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrIncidentNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to get incident by id: %v", ErrStorageUnavailable, err)
	}
	return incident, nil
}

// List возвращает список инцидентов с пагинацией, новые первыми
func (r *IncidentRepository) List(ctx context.Context, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `
		SELECT
			id,
			text,
			ST_Y(location::geometry) as latitude,
			ST_X(location::geometry) as longitude,
			city,
			occurred_at,
			severity,
			confidence,
			duplicate_of,
			created_at
		FROM incidents
		ORDER BY id DESC
		LIMIT $1 OFFSET $2;
	`
	rows, err := r.db.Query(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list incidents: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	incidents, err := scanIncidents(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return incidents, nil
}

// Count возвращает общее число сохраненных инцидентов (для health-check)
func (r *IncidentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count incidents: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id int64) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%d", id)
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis. Инциденты неизменяемы после записи,
// поэтому инвалидация не нужна, достаточно TTL.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%d", incident.ID)
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, incidentCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*models.Incident, error) {
	incident := &models.Incident{}
	var lat, lng *float64
	err := row.Scan(
		&incident.ID,
		&incident.Text,
		&lat,
		&lng,
		&incident.City,
		&incident.Timestamp,
		&incident.Severity,
		&incident.Confidence,
		&incident.DuplicateOf,
		&incident.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		incident.Latitude = *lat
		incident.Longitude = *lng
		incident.Located = true
	}
	return incident, nil
}

func scanIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return incidents, nil
}
