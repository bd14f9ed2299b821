package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

// PayableService is the read/advance side of cuenta de cobro tracking.
// Accounts are only created through settlement approval; here they move
// calculada→pagada or get cancelled.
type PayableService struct {
	payables PayableStore
}

func NewPayableService(payables PayableStore) *PayableService {
	return &PayableService{payables: payables}
}

func (s *PayableService) Get(ctx context.Context, id uuid.UUID) (*model.PayableAccount, error) {
	account, err := s.payables.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: payable account %s", ErrNotFound, id)
		}
		return nil, err
	}
	return account, nil
}

func (s *PayableService) ListByPayee(ctx context.Context, companyID, payeeID uuid.UUID) ([]model.PayableAccount, error) {
	if payeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: payee_id is required", ErrInvalidInput)
	}
	return s.payables.ListByPayee(ctx, companyID, payeeID)
}

// Advance moves an account along pendiente→calculada→pagada, or to
// cancelada from any non-paid state.
func (s *PayableService) Advance(ctx context.Context, id uuid.UUID, to model.PayableState, principal model.Principal) (*model.PayableAccount, error) {
	if !(principal.IsAdmin() || principal.IsAccounting()) {
		return nil, ErrPermissionDenied
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	valid := false
	switch to {
	case model.PayablePaid:
		valid = account.State == model.PayableCalculated
	case model.PayableCancelled:
		valid = account.State == model.PayablePending || account.State == model.PayableCalculated
	}
	if !valid {
		return nil, fmt.Errorf("%w: payable account %s is %s, cannot move to %s",
			ErrConflict, account.ID, account.State, to)
	}

	ok, err := s.payables.Transition(ctx, id, account.State, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payable account %s changed state concurrently", ErrConflict, account.ID)
	}
	return s.Get(ctx, id)
}
