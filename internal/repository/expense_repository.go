package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `
		SELECT id, company_id, vehicle_id, kind, state, settlement_id, created_at
		FROM expenses
		WHERE id IN ?
		ORDER BY created_at ASC, id ASC
	`, ids)
}

func (r *ExpenseRepository) ListUnliquidatedByVehicles(ctx context.Context, vehicleIDs []uuid.UUID) ([]model.Expense, error) {
	if len(vehicleIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `
		SELECT id, company_id, vehicle_id, kind, state, settlement_id, created_at
		FROM expenses
		WHERE vehicle_id IN ? AND state = 'no_liquidado' AND settlement_id IS NULL
		ORDER BY created_at ASC, id ASC
	`, vehicleIDs)
}

// SetState flips the expense state. Reverting to no_liquidado also clears
// the settlement claim so the expense becomes selectable again.
func (r *ExpenseRepository) SetState(ctx context.Context, ids []uuid.UUID, state model.ExpenseState) error {
	if len(ids) == 0 {
		return nil
	}
	if state == model.ExpenseUnliquidated {
		return r.db.WithContext(ctx).Exec(`
			UPDATE expenses
			SET state = ?, settlement_id = NULL
			WHERE id IN ?
		`, state, ids).Error
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE expenses
		SET state = ?
		WHERE id IN ?
	`, state, ids).Error
}

func (r *ExpenseRepository) list(ctx context.Context, query string, arg interface{}) ([]model.Expense, error) {
	var rows []struct {
		ID           uuid.UUID
		CompanyID    uuid.UUID
		VehicleID    uuid.UUID
		Kind         string
		State        string
		SettlementID *uuid.UUID
		CreatedAt    time.Time
	}
	if err := r.db.WithContext(ctx).Raw(query, arg).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	expenseIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		expenseIDs = append(expenseIDs, row.ID)
	}
	items, err := r.listItems(ctx, expenseIDs)
	if err != nil {
		return nil, err
	}

	expenses := make([]model.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, model.Expense{
			ID:           row.ID,
			CompanyID:    row.CompanyID,
			VehicleID:    row.VehicleID,
			Kind:         model.ExpenseKind(row.Kind),
			State:        model.ExpenseState(row.State),
			SettlementID: row.SettlementID,
			Items:        items[row.ID],
			CreatedAt:    row.CreatedAt,
		})
	}
	return expenses, nil
}

func (r *ExpenseRepository) listItems(ctx context.Context, expenseIDs []uuid.UUID) (map[uuid.UUID][]model.ExpenseItem, error) {
	var rows []struct {
		ID        uuid.UUID
		ExpenseID uuid.UUID
		Concept   string
		Value     float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, expense_id, concept, value
		FROM expense_items
		WHERE expense_id IN ?
		ORDER BY expense_id, id
	`, expenseIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID][]model.ExpenseItem, len(rows))
	for _, row := range rows {
		result[row.ExpenseID] = append(result[row.ExpenseID], model.ExpenseItem{
			ID:      row.ID,
			Concept: row.Concept,
			Value:   row.Value,
		})
	}
	return result, nil
}
