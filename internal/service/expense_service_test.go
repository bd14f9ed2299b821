package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodavia/transport-settlements/internal/model"
)

func TestAggregateUnliquidatedSplitsByKind(t *testing.T) {
	vehicleID := uuid.New()
	fuel := operationalExpense(vehicleID, 80_000, 20_000)
	preop := preoperationalExpense(vehicleID, 30_000)
	svc := NewExpenseService(newFakeExpenseStore(fuel, preop))

	pending, err := svc.AggregateUnliquidated(context.Background(), []uuid.UUID{vehicleID})
	require.NoError(t, err)

	require.Len(t, pending.Operational, 1)
	require.Len(t, pending.Preoperational, 1)
	assert.InDelta(t, 100_000, pending.OperationalTotal(), 0.001)
	assert.InDelta(t, 30_000, pending.PreoperationalTotal(), 0.001)
}

func TestAggregateUnliquidatedSkipsClaimedAndLiquidated(t *testing.T) {
	vehicleID := uuid.New()
	liquidated := operationalExpense(vehicleID, 10_000)
	liquidated.State = model.ExpenseLiquidated
	claimed := operationalExpense(vehicleID, 20_000)
	other := uuid.New()
	claimed.SettlementID = &other
	open := operationalExpense(vehicleID, 30_000)

	svc := NewExpenseService(newFakeExpenseStore(liquidated, claimed, open))

	pending, err := svc.AggregateUnliquidated(context.Background(), []uuid.UUID{vehicleID})
	require.NoError(t, err)
	require.Len(t, pending.Operational, 1)
	assert.Equal(t, open.ID, pending.Operational[0].ID)
}

func TestAggregateUnliquidatedRequiresVehicleIDs(t *testing.T) {
	svc := NewExpenseService(newFakeExpenseStore())
	_, err := svc.AggregateUnliquidated(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
