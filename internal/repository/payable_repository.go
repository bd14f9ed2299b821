package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

type PayableRepository struct {
	db *gorm.DB
}

func NewPayableRepository(db *gorm.DB) *PayableRepository {
	return &PayableRepository{db: db}
}

func (r *PayableRepository) Get(ctx context.Context, id uuid.UUID) (*model.PayableAccount, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *PayableRepository) FindByPayeeAndRequest(ctx context.Context, payeeID, requestID uuid.UUID) (*model.PayableAccount, error) {
	return r.getOne(ctx, `WHERE payee_id = ? AND service_request_id = ?`, payeeID, requestID)
}

func (r *PayableRepository) Create(ctx context.Context, acc *model.PayableAccount) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO payable_accounts (
			id, company_id, payee_kind, payee_id, payee_name, service_request_id,
			base_value, deducted_value, net_value, state, support_document,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, ?)
	`,
		acc.ID, acc.CompanyID, acc.PayeeKind, acc.PayeeID, acc.PayeeName,
		acc.ServiceRequestID, acc.State, acc.SupportDocument,
		acc.CreatedAt, acc.UpdatedAt,
	).Error
}

// AddItem appends one line and recomputes the account totals from all its
// items inside the same transaction, then moves the account to calculada.
// A settlement line maps to at most one item, so a replayed insert for the
// same line is a no-op.
func (r *PayableRepository) AddItem(ctx context.Context, accountID uuid.UUID, item model.PayableItem) (*model.PayableAccount, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO payable_items (
				id, payable_account_id, vehicle_settlement_id, vehicle_id, plate,
				base_value, deducted_value, net_value, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (vehicle_settlement_id) DO NOTHING
		`,
			item.ID, accountID, item.VehicleSettlementID, item.VehicleID, item.Plate,
			item.Base, item.Deducted, item.Net, item.CreatedAt,
		).Error
		if err != nil {
			return err
		}
		return tx.Exec(`
			UPDATE payable_accounts pa
			SET
				base_value = totals.base,
				deducted_value = totals.deducted,
				net_value = totals.net,
				state = ?,
				updated_at = ?
			FROM (
				SELECT
					COALESCE(SUM(base_value), 0) AS base,
					COALESCE(SUM(deducted_value), 0) AS deducted,
					COALESCE(SUM(net_value), 0) AS net
				FROM payable_items
				WHERE payable_account_id = ?
			) AS totals
			WHERE pa.id = ?
		`, model.PayableCalculated, item.CreatedAt, accountID, accountID).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, accountID)
}

func (r *PayableRepository) ListByPayee(ctx context.Context, companyID, payeeID uuid.UUID) ([]model.PayableAccount, error) {
	rows, err := r.list(ctx, `WHERE company_id = ? AND payee_id = ? ORDER BY created_at DESC`, companyID, payeeID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PayableRepository) Transition(ctx context.Context, id uuid.UUID, from, to model.PayableState) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE payable_accounts
		SET state = ?, updated_at = NOW()
		WHERE id = ? AND state = ?
	`, to, id, from)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PayableRepository) getOne(ctx context.Context, clause string, args ...interface{}) (*model.PayableAccount, error) {
	rows, err := r.list(ctx, clause+` LIMIT 1`, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	acc := rows[0]
	return &acc, nil
}

func (r *PayableRepository) list(ctx context.Context, clause string, args ...interface{}) ([]model.PayableAccount, error) {
	var rows []struct {
		ID               uuid.UUID
		CompanyID        uuid.UUID
		PayeeKind        string
		PayeeID          uuid.UUID
		PayeeName        string
		ServiceRequestID uuid.UUID
		BaseValue        float64
		DeductedValue    float64
		NetValue         float64
		State            string
		SupportDocument  string
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
	query := `
		SELECT
			id, company_id, payee_kind, payee_id, payee_name, service_request_id,
			base_value, deducted_value, net_value, state,
			COALESCE(support_document, '') AS support_document,
			created_at, updated_at
		FROM payable_accounts ` + clause
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	accounts := make([]model.PayableAccount, 0, len(rows))
	for _, row := range rows {
		items, err := r.listItems(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, model.PayableAccount{
			ID:               row.ID,
			CompanyID:        row.CompanyID,
			PayeeKind:        model.OwnerKind(row.PayeeKind),
			PayeeID:          row.PayeeID,
			PayeeName:        row.PayeeName,
			ServiceRequestID: row.ServiceRequestID,
			Base:             row.BaseValue,
			Deducted:         row.DeductedValue,
			Net:              row.NetValue,
			State:            model.PayableState(row.State),
			SupportDocument:  row.SupportDocument,
			Items:            items,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		})
	}
	return accounts, nil
}

func (r *PayableRepository) listItems(ctx context.Context, accountID uuid.UUID) ([]model.PayableItem, error) {
	var rows []struct {
		ID                  uuid.UUID
		VehicleSettlementID uuid.UUID
		VehicleID           uuid.UUID
		Plate               string
		BaseValue           float64
		DeductedValue       float64
		NetValue            float64
		CreatedAt           time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id, vehicle_settlement_id, vehicle_id, plate,
			base_value, deducted_value, net_value, created_at
		FROM payable_items
		WHERE payable_account_id = ?
		ORDER BY created_at ASC, id ASC
	`, accountID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]model.PayableItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, model.PayableItem{
			ID:                  row.ID,
			PayableAccountID:    accountID,
			VehicleSettlementID: row.VehicleSettlementID,
			VehicleID:           row.VehicleID,
			Plate:               row.Plate,
			Base:                row.BaseValue,
			Deducted:            row.DeductedValue,
			Net:                 row.NetValue,
			CreatedAt:           row.CreatedAt,
		})
	}
	return items, nil
}
