package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rodavia/transport-settlements/internal/model"
)

// Store contracts the services depend on. The gorm repositories satisfy
// these; missing single records surface as gorm.ErrRecordNotFound.

type ContractStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	// IncrementConsumed atomically adds amount to the running consumption
	// of an active contract and returns the previous and new values.
	IncrementConsumed(ctx context.Context, id uuid.UUID, amount float64) (prev, next float64, err error)
	UpdateBudgetCap(ctx context.Context, id uuid.UUID, cap *float64) error
	AppendEvent(ctx context.Context, event model.ContractEvent) error
}

type RequestStore interface {
	// GetByIDs returns the requests it finds; absent ids are simply not in
	// the result.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ServiceRequest, error)
	// Release reverts a request claimed by the given settlement back to
	// plain invoiced and drops the settlement reference. Idempotent.
	Release(ctx context.Context, requestID, settlementID uuid.UUID) error
}

type ExpenseStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Expense, error)
	ListUnliquidatedByVehicles(ctx context.Context, vehicleIDs []uuid.UUID) ([]model.Expense, error)
	// SetState flips the given expenses to the target state. Idempotent.
	SetState(ctx context.Context, ids []uuid.UUID, state model.ExpenseState) error
}

type VehicleStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vehicle, error)
}

type SettlementStore interface {
	// Create persists the settlement together with its lines and claims
	// every included request and expense, all or nothing. A request or
	// expense already taken by a live settlement, or a number collision,
	// fails the whole write with repository.ErrAlreadySettled or
	// repository.ErrDuplicateNumber.
	Create(ctx context.Context, s *model.Settlement) error
	Get(ctx context.Context, id uuid.UUID) (*model.Settlement, error)
	List(ctx context.Context, filter model.SettlementFilter) ([]model.Settlement, int64, error)
	// Transition performs a compare-and-set state change and reports
	// whether the row was still in the expected state.
	Transition(ctx context.Context, id uuid.UUID, from, to model.SettlementState, actor uuid.UUID, notes string, at time.Time) (bool, error)
	UpdateLine(ctx context.Context, lineID uuid.UUID, state model.LineState, payableID *uuid.UUID) error
	// AppendSendRecord logs one dispatched email and marks the settlement
	// as delivered to the client.
	AppendSendRecord(ctx context.Context, id uuid.UUID, rec model.SendRecord) error
}

type PayableStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.PayableAccount, error)
	FindByPayeeAndRequest(ctx context.Context, payeeID, requestID uuid.UUID) (*model.PayableAccount, error)
	Create(ctx context.Context, acc *model.PayableAccount) error
	// AddItem appends one line, recomputes the account totals from its
	// items and moves the account to calculada.
	AddItem(ctx context.Context, accountID uuid.UUID, item model.PayableItem) (*model.PayableAccount, error)
	ListByPayee(ctx context.Context, companyID, payeeID uuid.UUID) ([]model.PayableAccount, error)
	Transition(ctx context.Context, id uuid.UUID, from, to model.PayableState) (bool, error)
}
