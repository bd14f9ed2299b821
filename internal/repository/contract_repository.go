package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var row struct {
		ID           uuid.UUID
		CompanyID    uuid.UUID
		ClientID     uuid.UUID
		ClientName   string
		ContractType string
		HourRate     float64
		KmRate       float64
		TripRate     float64
		TariffRate   float64
		BudgetPeriod string
		BudgetCap    *float64
		Consumed     float64
		Active       bool
		CreatedBy    uuid.UUID
		CreatedAt    time.Time
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT
			c.id,
			c.company_id,
			c.client_id,
			cl.name AS client_name,
			c.contract_type,
			c.hour_rate,
			c.km_rate,
			c.trip_rate,
			c.tariff_rate,
			c.budget_period,
			c.budget_cap,
			c.consumed,
			c.active,
			c.created_by,
			c.created_at
		FROM contracts c
		JOIN clients cl ON cl.id = c.client_id
		WHERE c.id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	events, err := r.listEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.Contract{
		ID:         row.ID,
		CompanyID:  row.CompanyID,
		ClientID:   row.ClientID,
		ClientName: row.ClientName,
		Type:       model.ContractType(row.ContractType),
		Pricing: model.PricingTable{
			HourRate:   row.HourRate,
			KmRate:     row.KmRate,
			TripRate:   row.TripRate,
			TariffRate: row.TariffRate,
		},
		BudgetPeriod: model.BudgetPeriod(row.BudgetPeriod),
		BudgetCap:    row.BudgetCap,
		Consumed:     row.Consumed,
		Active:       row.Active,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		Events:       events,
	}, nil
}

// IncrementConsumed is the serialized read-modify-write for the running
// consumption: a single conditional UPDATE, so concurrent charges against
// the same contract never lose updates.
func (r *ContractRepository) IncrementConsumed(ctx context.Context, id uuid.UUID, amount float64) (float64, float64, error) {
	var next *float64
	err := r.db.WithContext(ctx).Raw(`
		UPDATE contracts
		SET consumed = consumed + ?
		WHERE id = ? AND active
		RETURNING consumed
	`, amount, id).Scan(&next).Error
	if err != nil {
		return 0, 0, err
	}
	if next == nil {
		return 0, 0, gorm.ErrRecordNotFound
	}
	return *next - amount, *next, nil
}

func (r *ContractRepository) UpdateBudgetCap(ctx context.Context, id uuid.UUID, cap *float64) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET budget_cap = ?
		WHERE id = ? AND active
	`, cap, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) AppendEvent(ctx context.Context, event model.ContractEvent) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO contract_events (
			id, contract_id, kind, prev_cap, new_cap, prev_consumed, new_consumed,
			service_request_id, amount, mode, actor, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID,
		event.ContractID,
		event.Kind,
		event.PrevCap,
		event.NewCap,
		event.PrevConsumed,
		event.NewConsumed,
		event.ServiceRequestID,
		event.Amount,
		event.Mode,
		event.Actor,
		event.Notes,
		event.CreatedAt,
	).Error
}

func (r *ContractRepository) listEvents(ctx context.Context, contractID uuid.UUID) ([]model.ContractEvent, error) {
	var rows []struct {
		ID               uuid.UUID
		ContractID       uuid.UUID
		Kind             string
		PrevCap          *float64
		NewCap           *float64
		PrevConsumed     float64
		NewConsumed      float64
		ServiceRequestID *uuid.UUID
		Amount           float64
		Mode             string
		Actor            uuid.UUID
		Notes            string
		CreatedAt        time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id, contract_id, kind, prev_cap, new_cap, prev_consumed, new_consumed,
			service_request_id, amount, mode, actor, notes, created_at
		FROM contract_events
		WHERE contract_id = ?
		ORDER BY created_at ASC, id ASC
	`, contractID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]model.ContractEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, model.ContractEvent{
			ID:               row.ID,
			ContractID:       row.ContractID,
			Kind:             model.ContractEventKind(row.Kind),
			PrevCap:          row.PrevCap,
			NewCap:           row.NewCap,
			PrevConsumed:     row.PrevConsumed,
			NewConsumed:      row.NewConsumed,
			ServiceRequestID: row.ServiceRequestID,
			Amount:           row.Amount,
			Mode:             model.ChargeMode(row.Mode),
			Actor:            row.Actor,
			Notes:            row.Notes,
			CreatedAt:        row.CreatedAt,
		})
	}
	return events, nil
}
