package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-volunteer/internal/config"
	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"
)

type Store interface {
	UpsertEvent(ctx context.Context, event *models.Event) error
	UpsertUser(ctx context.Context, user *models.User) error
}

// Syncer applies upsert messages from the event and identity services to the directory.
type Syncer struct {
	Store  Store
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewSyncer(store Store, topics config.TopicConfig, log *logger.Logger) *Syncer {
	return &Syncer{Store: store, Topics: topics, Logger: log}
}

// ConsumedTopics returns the topics the syncer reads.
func (s *Syncer) ConsumedTopics() []string {
	return []string{s.Topics.EventsUpserted, s.Topics.UsersUpserted}
}

// HandleMessage matches the kafka consumer's handler signature.
func (s *Syncer) HandleMessage(ctx context.Context, topic string, value []byte) error {
	switch topic {
	case s.Topics.EventsUpserted:
		var msg models.EventUpsertMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode event message: %w", err)
		}
		if msg.ID == "" {
			return fmt.Errorf("event message without id")
		}
		if err := s.Store.UpsertEvent(ctx, &models.Event{
			ID:        msg.ID,
			Title:     msg.Title,
			StartTime: msg.StartTime.UTC(),
			Capacity:  msg.Capacity,
		}); err != nil {
			return err
		}
		s.Logger.LogDatabase("UPSERT", "events", msg.ID)
		return nil

	case s.Topics.UsersUpserted:
		var msg models.UserUpsertMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode user message: %w", err)
		}
		if msg.ID == "" {
			return fmt.Errorf("user message without id")
		}
		role := msg.Role
		if role == "" {
			role = models.RoleUser
		}
		if err := s.Store.UpsertUser(ctx, &models.User{ID: msg.ID, Name: msg.Name, Role: role}); err != nil {
			return err
		}
		s.Logger.LogDatabase("UPSERT", "users", msg.ID)
		return nil

	default:
		return fmt.Errorf("unexpected topic %q", topic)
	}
}
