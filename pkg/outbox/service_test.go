package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/fieldops-backend/pkg/db/dbtest"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	"github.com/angelmondragon/fieldops-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)

	quotaID := uuid.New()
	data := payloads.QuotaStatusChangedEvent{
		QuotaID:        quotaID,
		TenantID:       uuid.New(),
		QuotaType:      enums.QuotaTypeUsers,
		PreviousStatus: enums.QuotaStatusActive,
		Status:         enums.QuotaStatusWarning,
		QuotaLimit:     50,
		CurrentUsage:   45,
		Trigger:        "adjust_usage",
	}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventQuotaStatusChanged,
			AggregateType: enums.AggregateTenantQuota,
			AggregateID:   quotaID,
			Data:          data,
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateTenantQuota, quotaID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventQuotaStatusChanged, rows[0].EventType)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)

	var decoded payloads.QuotaStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &decoded))
	require.Equal(t, data, decoded)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	quotaID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventQuotaUsageReset,
			AggregateType: enums.AggregateTenantQuota,
			AggregateID:   quotaID,
			Data:          payloads.QuotaUsageResetEvent{QuotaID: quotaID},
		}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateTenantQuota, quotaID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestEmitValidatesInput(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))

	client := dbtest.Open(t)
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     "bogus",
			AggregateType: enums.AggregateTenantQuota,
		})
	})
	require.Error(t, err)
}

func TestEmitPicksActorFromContext(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)

	quotaID := uuid.New()
	actor := ActorRef{UserID: uuid.New(), Role: string(enums.RoleAdmin)}
	ctx := WithActor(context.Background(), actor)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventQuotaLimitChanged,
			AggregateType: enums.AggregateTenantQuota,
			AggregateID:   quotaID,
			Data:          payloads.QuotaLimitChangedEvent{QuotaID: quotaID, QuotaLimit: 10},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListForAggregate(context.Background(), enums.AggregateTenantQuota, quotaID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.NotNil(t, envelope.Actor)
	require.Equal(t, actor.UserID, envelope.Actor.UserID)
	require.Nil(t, ActorFromContext(context.Background()))
}
