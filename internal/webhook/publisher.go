package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	webhookQueueKey = "analysis_events"
)

// AnalysisEvent - данные вебхука о результате анализа одного сообщения
type AnalysisEvent struct {
	EventID     string    `json:"event_id"`
	IncidentID  int64     `json:"incident_id"`
	City        string    `json:"city"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Severity    string    `json:"severity"`
	Confidence  float64   `json:"confidence"`
	IsDuplicate bool      `json:"is_duplicate"`
	DuplicateOf *int64    `json:"duplicate_of,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher - интерфейс для публикации вебхуков
type Publisher interface {
	Publish(ctx context.Context, event AnalysisEvent) error
}

// RedisPublisher - реализация Publisher, использующая Redis
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие анализа в очередь Redis
func (p *RedisPublisher) Publish(ctx context.Context, event AnalysisEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis event: %w", err)
	}

	// LPUSH добавляет событие в левую часть списка, воркер читает справа
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish analysis event to Redis: %w", err)
	}
	return nil
}
