package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rodavia/transport-settlements/internal/model"
)

// ExpenseService exposes the unliquidated-expense view used to preview a
// settlement run. Pure reads, no mutation.
type ExpenseService struct {
	expenses ExpenseStore
}

func NewExpenseService(expenses ExpenseStore) *ExpenseService {
	return &ExpenseService{expenses: expenses}
}

type PendingExpenses struct {
	Operational    []model.Expense
	Preoperational []model.Expense
}

func (p PendingExpenses) OperationalTotal() float64 {
	var total float64
	for _, e := range p.Operational {
		total += e.Total()
	}
	return total
}

func (p PendingExpenses) PreoperationalTotal() float64 {
	var total float64
	for _, e := range p.Preoperational {
		total += e.Total()
	}
	return total
}

// AggregateUnliquidated returns the no_liquidado expenses of the given
// vehicles split by kind.
func (s *ExpenseService) AggregateUnliquidated(ctx context.Context, vehicleIDs []uuid.UUID) (*PendingExpenses, error) {
	if len(vehicleIDs) == 0 {
		return nil, fmt.Errorf("%w: vehicle_ids is required", ErrInvalidInput)
	}

	expenses, err := s.expenses.ListUnliquidatedByVehicles(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}

	result := &PendingExpenses{}
	for _, expense := range expenses {
		switch expense.Kind {
		case model.ExpensePreoperational:
			result.Preoperational = append(result.Preoperational, expense)
		default:
			result.Operational = append(result.Operational, expense)
		}
	}
	return result, nil
}
