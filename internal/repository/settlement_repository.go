package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create persists the settlement, its vehicle lines and the request and
// expense claims in one transaction. Claims are conditional updates, so a
// concurrent run racing for the same request or expense fails the whole
// write instead of sharing it.
func (r *SettlementRepository) Create(ctx context.Context, s *model.Settlement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			INSERT INTO settlements (
				id, company_id, number, generated_at, client_name,
				total_services, total_operational, total_preoperational, total_net,
				state, notes, sent_to_client, created_by, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)
		`,
			s.ID, s.CompanyID, s.Number, s.GeneratedAt, s.ClientName,
			s.TotalServices, s.TotalOperational, s.TotalPreoperational, s.TotalNet,
			s.State, s.Notes, s.CreatedBy, s.CreatedAt,
		).Error
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateNumber
			}
			return err
		}

		for position, requestID := range s.RequestIDs {
			res := tx.Exec(`
				UPDATE service_requests
				SET billing = ?
				WHERE id = ? AND billing <> ?
			`, model.BillingReadyToSettle, requestID, model.BillingReadyToSettle)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrAlreadySettled
			}
			if err := tx.Exec(`
				INSERT INTO settlement_requests (settlement_id, request_id, position)
				VALUES (?, ?, ?)
			`, s.ID, requestID, position).Error; err != nil {
				return err
			}
		}

		for _, expenseID := range s.ExpenseIDs() {
			res := tx.Exec(`
				UPDATE expenses
				SET settlement_id = ?
				WHERE id = ? AND state = 'no_liquidado' AND settlement_id IS NULL
			`, s.ID, expenseID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrAlreadySettled
			}
			if err := tx.Exec(`
				INSERT INTO settlement_expenses (settlement_id, expense_id)
				VALUES (?, ?)
			`, s.ID, expenseID).Error; err != nil {
				return err
			}
		}

		for position, line := range s.Lines {
			err := tx.Exec(`
				INSERT INTO settlement_lines (
					id, settlement_id, position, vehicle_id, plate, fleet_type,
					payee_kind, payee_id, payee_name, payee_email,
					services, expenses, net, state, payable_account_id
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
			`,
				line.ID, s.ID, position, line.VehicleID, line.Plate, line.FleetType,
				line.PayeeKind, line.PayeeID, line.PayeeName, line.PayeeEmail,
				line.Services, line.Expenses, line.Net, line.State,
			).Error
			if err != nil {
				return err
			}
			for reqPos, requestID := range line.RequestIDs {
				if err := tx.Exec(`
					INSERT INTO settlement_line_requests (line_id, request_id, position)
					VALUES (?, ?, ?)
				`, line.ID, requestID, reqPos).Error; err != nil {
					return err
				}
			}
			for _, expenseID := range line.ExpenseIDs {
				if err := tx.Exec(`
					INSERT INTO settlement_line_expenses (line_id, expense_id)
					VALUES (?, ?)
				`, line.ID, expenseID).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *SettlementRepository) Get(ctx context.Context, id uuid.UUID) (*model.Settlement, error) {
	settlements, err := r.load(ctx, `WHERE s.id = ?`, []interface{}{id}, "")
	if err != nil {
		return nil, err
	}
	if len(settlements) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	s := settlements[0]
	return &s, nil
}

func (r *SettlementRepository) List(ctx context.Context, filter model.SettlementFilter) ([]model.Settlement, int64, error) {
	where := []string{"s.company_id = ?"}
	args := []interface{}{filter.CompanyID}
	if filter.State != nil {
		where = append(where, "s.state = ?")
		args = append(args, *filter.State)
	}
	if filter.From != nil {
		where = append(where, "s.generated_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, "s.generated_at < ?")
		args = append(args, *filter.To)
	}
	clause := "WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM settlements s `+clause, args...,
	).Scan(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	paging := " ORDER BY s.generated_at DESC, s.number ASC LIMIT ? OFFSET ?"
	settlements, err := r.load(ctx, clause, append(args, filter.PageSize, offset), paging)
	if err != nil {
		return nil, 0, err
	}
	return settlements, total, nil
}

// Transition is the optimistic state flip: the write only happens if the
// row is still in the expected state.
func (r *SettlementRepository) Transition(ctx context.Context, id uuid.UUID, from, to model.SettlementState, actor uuid.UUID, notes string, at time.Time) (bool, error) {
	var res *gorm.DB
	switch to {
	case model.SettlementApproved:
		res = r.db.WithContext(ctx).Exec(`
			UPDATE settlements
			SET state = ?, approved_by = ?, approved_at = ?, notes = ?
			WHERE id = ? AND state = ?
		`, to, actor, at, notes, id, from)
	case model.SettlementRejected:
		res = r.db.WithContext(ctx).Exec(`
			UPDATE settlements
			SET state = ?, rejected_by = ?, rejected_at = ?, notes = ?
			WHERE id = ? AND state = ?
		`, to, actor, at, notes, id, from)
	default:
		res = r.db.WithContext(ctx).Exec(`
			UPDATE settlements
			SET state = ?, notes = ?
			WHERE id = ? AND state = ?
		`, to, notes, id, from)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *SettlementRepository) UpdateLine(ctx context.Context, lineID uuid.UUID, state model.LineState, payableID *uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE settlement_lines
		SET state = ?, payable_account_id = ?
		WHERE id = ?
	`, state, payableID, lineID).Error
}

func (r *SettlementRepository) AppendSendRecord(ctx context.Context, id uuid.UUID, rec model.SendRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			INSERT INTO settlement_sends (settlement_id, recipient, sent_by, sent_at)
			VALUES (?, ?, ?, ?)
		`, id, rec.Recipient, rec.SentBy, rec.SentAt).Error; err != nil {
			return err
		}
		return tx.Exec(`
			UPDATE settlements SET sent_to_client = TRUE WHERE id = ?
		`, id).Error
	})
}

func (r *SettlementRepository) load(ctx context.Context, clause string, args []interface{}, paging string) ([]model.Settlement, error) {
	var rows []struct {
		ID                  uuid.UUID
		CompanyID           uuid.UUID
		Number              string
		GeneratedAt         time.Time
		ClientName          string
		TotalServices       float64
		TotalOperational    float64
		TotalPreoperational float64
		TotalNet            float64
		State               string
		ApprovedBy          *uuid.UUID
		ApprovedAt          *time.Time
		RejectedBy          *uuid.UUID
		RejectedAt          *time.Time
		Notes               string
		SentToClient        bool
		CreatedBy           uuid.UUID
		CreatedAt           time.Time
	}
	query := `
		SELECT
			s.id, s.company_id, s.number, s.generated_at, s.client_name,
			s.total_services, s.total_operational, s.total_preoperational, s.total_net,
			s.state, s.approved_by, s.approved_at, s.rejected_by, s.rejected_at,
			COALESCE(s.notes, '') AS notes, s.sent_to_client, s.created_by, s.created_at
		FROM settlements s ` + clause + paging
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	settlements := make([]model.Settlement, 0, len(rows))
	for _, row := range rows {
		s := model.Settlement{
			ID:                  row.ID,
			CompanyID:           row.CompanyID,
			Number:              row.Number,
			GeneratedAt:         row.GeneratedAt,
			ClientName:          row.ClientName,
			TotalServices:       row.TotalServices,
			TotalOperational:    row.TotalOperational,
			TotalPreoperational: row.TotalPreoperational,
			TotalNet:            row.TotalNet,
			State:               model.SettlementState(row.State),
			ApprovedBy:          row.ApprovedBy,
			ApprovedAt:          row.ApprovedAt,
			RejectedBy:          row.RejectedBy,
			RejectedAt:          row.RejectedAt,
			Notes:               row.Notes,
			SentToClient:        row.SentToClient,
			CreatedBy:           row.CreatedBy,
			CreatedAt:           row.CreatedAt,
		}
		if err := r.loadDetails(ctx, &s); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, nil
}

func (r *SettlementRepository) loadDetails(ctx context.Context, s *model.Settlement) error {
	if err := r.db.WithContext(ctx).Raw(`
		SELECT request_id FROM settlement_requests WHERE settlement_id = ? ORDER BY position ASC
	`, s.ID).Scan(&s.RequestIDs).Error; err != nil {
		return err
	}

	var expenseRows []struct {
		ExpenseID uuid.UUID
		Kind      string
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT se.expense_id, e.kind
		FROM settlement_expenses se
		JOIN expenses e ON e.id = se.expense_id
		WHERE se.settlement_id = ?
	`, s.ID).Scan(&expenseRows).Error; err != nil {
		return err
	}
	for _, row := range expenseRows {
		if model.ExpenseKind(row.Kind) == model.ExpensePreoperational {
			s.PreoperationalIDs = append(s.PreoperationalIDs, row.ExpenseID)
			continue
		}
		s.OperationalIDs = append(s.OperationalIDs, row.ExpenseID)
	}

	lines, err := r.loadLines(ctx, s.ID)
	if err != nil {
		return err
	}
	s.Lines = lines

	var sendRows []struct {
		Recipient string
		SentBy    uuid.UUID
		SentAt    time.Time
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT recipient, sent_by, sent_at
		FROM settlement_sends
		WHERE settlement_id = ?
		ORDER BY sent_at ASC
	`, s.ID).Scan(&sendRows).Error; err != nil {
		return err
	}
	for _, row := range sendRows {
		s.SendLog = append(s.SendLog, model.SendRecord{
			Recipient: row.Recipient,
			SentBy:    row.SentBy,
			SentAt:    row.SentAt,
		})
	}
	return nil
}

func (r *SettlementRepository) loadLines(ctx context.Context, settlementID uuid.UUID) ([]model.VehicleSettlement, error) {
	var rows []struct {
		ID               uuid.UUID
		VehicleID        uuid.UUID
		Plate            string
		FleetType        string
		PayeeKind        string
		PayeeID          uuid.UUID
		PayeeName        string
		PayeeEmail       string
		Services         float64
		Expenses         float64
		Net              float64
		State            string
		PayableAccountID *uuid.UUID
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id, vehicle_id, plate, fleet_type,
			payee_kind, payee_id, payee_name, COALESCE(payee_email, '') AS payee_email,
			services, expenses, net, state, payable_account_id
		FROM settlement_lines
		WHERE settlement_id = ?
		ORDER BY position ASC
	`, settlementID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	lines := make([]model.VehicleSettlement, 0, len(rows))
	for _, row := range rows {
		line := model.VehicleSettlement{
			ID:               row.ID,
			SettlementID:     settlementID,
			VehicleID:        row.VehicleID,
			Plate:            row.Plate,
			FleetType:        model.FleetType(row.FleetType),
			PayeeKind:        model.OwnerKind(row.PayeeKind),
			PayeeID:          row.PayeeID,
			PayeeName:        row.PayeeName,
			PayeeEmail:       row.PayeeEmail,
			Services:         row.Services,
			Expenses:         row.Expenses,
			Net:              row.Net,
			State:            model.LineState(row.State),
			PayableAccountID: row.PayableAccountID,
		}
		if err := r.db.WithContext(ctx).Raw(`
			SELECT request_id FROM settlement_line_requests WHERE line_id = ? ORDER BY position ASC
		`, row.ID).Scan(&line.RequestIDs).Error; err != nil {
			return nil, err
		}
		if err := r.db.WithContext(ctx).Raw(`
			SELECT expense_id FROM settlement_line_expenses WHERE line_id = ?
		`, row.ID).Scan(&line.ExpenseIDs).Error; err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
