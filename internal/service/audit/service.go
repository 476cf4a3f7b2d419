package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
)

// Service emits audit facts into the outbox. The core only produces
// these events; persistence of an audit trail and delivery to
// downstream consumers happen outside it (outbox worker + broker).
type Service struct {
	outbox repository.OutboxRepository
}

func NewService(outbox repository.OutboxRepository) *Service {
	return &Service{outbox: outbox}
}

func newEvent(actorID uuid.UUID, eventType, entityType string, entityID uuid.UUID, payload interface{}) (*model.OutboxEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
		}
		raw = b
	}

	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Payload:    raw,
		Status:     model.OutboxStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

// Emit records an audit fact outside any caller transaction.
func (s *Service) Emit(ctx context.Context, actorID uuid.UUID, eventType, entityType string, entityID uuid.UUID, payload interface{}) error {
	event, err := newEvent(actorID, eventType, entityType, entityID, payload)
	if err != nil {
		return err
	}
	return s.outbox.Create(ctx, event)
}

// EmitTx records an audit fact inside the caller's transaction, so a
// booking and its audit event commit or roll back together.
func (s *Service) EmitTx(ctx context.Context, tx repository.Tx, actorID uuid.UUID, eventType, entityType string, entityID uuid.UUID, payload interface{}) error {
	event, err := newEvent(actorID, eventType, entityType, entityID, payload)
	if err != nil {
		return err
	}
	return tx.CreateOutboxEvent(ctx, event)
}
