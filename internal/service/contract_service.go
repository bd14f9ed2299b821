package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

// ContractService is the budget ledger for fixed contracts. Every mutation
// of consumption or cap goes through an appended history event; the cap is
// advisory only and never blocks a charge.
type ContractService struct {
	contracts ContractStore
}

func NewContractService(contracts ContractStore) *ContractService {
	return &ContractService{contracts: contracts}
}

type ChargeInput struct {
	ContractID       uuid.UUID
	Amount           float64
	ServiceRequestID *uuid.UUID
	Mode             model.ChargeMode
	Notes            string
	Principal        model.Principal
}

type AdjustBudgetInput struct {
	ContractID uuid.UUID
	NewCap     *float64
	Notes      string
	Principal  model.Principal
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, id)
		}
		return nil, err
	}
	return contract, nil
}

// Charge records a service charge against the contract. In
// dentro_contrato mode the consumed amount grows even past the cap; in
// fuera_contrato mode only the audit event is appended.
func (s *ContractService) Charge(ctx context.Context, input ChargeInput) (*model.Contract, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if input.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	if input.Mode != model.ChargeModeWithinContract && input.Mode != model.ChargeModeOutsideContract {
		return nil, fmt.Errorf("%w: unknown charge mode %q", ErrInvalidInput, input.Mode)
	}

	contract, err := s.Get(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.Active {
		return nil, fmt.Errorf("%w: contract %s is inactive", ErrConflict, contract.ID)
	}

	prev := contract.Consumed
	next := contract.Consumed
	if input.Mode == model.ChargeModeWithinContract {
		prev, next, err = s.contracts.IncrementConsumed(ctx, contract.ID, input.Amount)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: contract %s is inactive", ErrConflict, contract.ID)
			}
			return nil, err
		}
	}

	event := model.ContractEvent{
		ID:               uuid.New(),
		ContractID:       contract.ID,
		Kind:             model.ContractEventServiceCharge,
		PrevCap:          contract.BudgetCap,
		NewCap:           contract.BudgetCap,
		PrevConsumed:     prev,
		NewConsumed:      next,
		ServiceRequestID: input.ServiceRequestID,
		Amount:           input.Amount,
		Mode:             input.Mode,
		Actor:            input.Principal.UserID,
		Notes:            input.Notes,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.contracts.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	return s.Get(ctx, contract.ID)
}

// AdjustBudget sets (or clears) the contract cap and logs the change.
func (s *ContractService) AdjustBudget(ctx context.Context, input AdjustBudgetInput) (*model.Contract, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if input.NewCap != nil && *input.NewCap < 0 {
		return nil, fmt.Errorf("%w: budget cap must not be negative", ErrInvalidInput)
	}

	contract, err := s.Get(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.Active {
		return nil, fmt.Errorf("%w: contract %s is inactive", ErrConflict, contract.ID)
	}

	if err := s.contracts.UpdateBudgetCap(ctx, contract.ID, input.NewCap); err != nil {
		return nil, err
	}

	event := model.ContractEvent{
		ID:           uuid.New(),
		ContractID:   contract.ID,
		Kind:         model.ContractEventBudgetSet,
		PrevCap:      contract.BudgetCap,
		NewCap:       input.NewCap,
		PrevConsumed: contract.Consumed,
		NewConsumed:  contract.Consumed,
		Actor:        input.Principal.UserID,
		Notes:        input.Notes,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.contracts.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	return s.Get(ctx, contract.ID)
}
