package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ServiceRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []struct {
		ID            uuid.UUID
		LogbookID     uuid.UUID
		Code          string
		ClientID      uuid.UUID
		ClientName    string
		StartAt       time.Time
		EndAt         time.Time
		Origin        string
		Destination   string
		ClientValue   float64
		PaidValue     float64
		Utility       float64
		Status        string
		Execution     string
		Billing       string
		InvoiceNumber string
		CreatedAt     time.Time
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			sr.id,
			sr.logbook_id,
			sr.code,
			sr.client_id,
			cl.name AS client_name,
			sr.start_at,
			sr.end_at,
			sr.origin,
			sr.destination,
			sr.client_value,
			sr.paid_value,
			sr.utility,
			sr.status,
			sr.execution,
			sr.billing,
			COALESCE(sr.invoice_number, '') AS invoice_number,
			sr.created_at
		FROM service_requests sr
		JOIN clients cl ON cl.id = sr.client_id
		WHERE sr.id IN ?
		ORDER BY sr.code ASC
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	assignments, err := r.listAssignments(ctx, ids)
	if err != nil {
		return nil, err
	}
	refs, err := r.listSettlementRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	requests := make([]model.ServiceRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, model.ServiceRequest{
			ID:            row.ID,
			LogbookID:     row.LogbookID,
			Code:          row.Code,
			ClientID:      row.ClientID,
			ClientName:    row.ClientName,
			StartAt:       row.StartAt,
			EndAt:         row.EndAt,
			Origin:        row.Origin,
			Destination:   row.Destination,
			Assignments:   assignments[row.ID],
			ClientValue:   row.ClientValue,
			PaidValue:     row.PaidValue,
			Utility:       row.Utility,
			Status:        model.RequestStatus(row.Status),
			Execution:     model.ExecutionStatus(row.Execution),
			Billing:       model.BillingStatus(row.Billing),
			InvoiceNumber: row.InvoiceNumber,
			SettlementIDs: refs[row.ID],
			CreatedAt:     row.CreatedAt,
		})
	}
	return requests, nil
}

// Release reverts a claimed request to plain invoiced. The join row stays
// as the rejected settlement's historical record; reference lists exclude
// it by settlement state. Safe to retry: if another settlement that is not
// rejected holds the request, the revert does not touch it.
func (r *RequestRepository) Release(ctx context.Context, requestID, settlementID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE service_requests
		SET billing = ?
		WHERE id = ? AND billing = ?
			AND EXISTS (
				SELECT 1 FROM settlement_requests sr
				WHERE sr.settlement_id = ? AND sr.request_id = service_requests.id
			)
			AND NOT EXISTS (
				SELECT 1
				FROM settlement_requests sr2
				JOIN settlements s2 ON s2.id = sr2.settlement_id
				WHERE sr2.request_id = service_requests.id
					AND sr2.settlement_id <> ?
					AND s2.state <> 'rechazada'
			)
	`, model.BillingInvoiced, requestID, model.BillingReadyToSettle, settlementID, settlementID).Error
}

func (r *RequestRepository) listAssignments(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.VehicleAssignment, error) {
	var rows []struct {
		RequestID      uuid.UUID
		VehicleID      uuid.UUID
		DriverID       *uuid.UUID
		Seats          int
		ContractMode   *string
		ContractAmount *float64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT request_id, vehicle_id, driver_id, seats, contract_mode, contract_amount
		FROM service_request_vehicles
		WHERE request_id IN ?
		ORDER BY request_id, vehicle_id
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID][]model.VehicleAssignment, len(rows))
	for _, row := range rows {
		var mode *model.ChargeMode
		if row.ContractMode != nil {
			m := model.ChargeMode(*row.ContractMode)
			mode = &m
		}
		result[row.RequestID] = append(result[row.RequestID], model.VehicleAssignment{
			VehicleID:      row.VehicleID,
			DriverID:       row.DriverID,
			Seats:          row.Seats,
			ContractMode:   mode,
			ContractAmount: row.ContractAmount,
		})
	}
	return result, nil
}

// listSettlementRefs only sees live references: a rejected settlement no
// longer counts against its requests.
func (r *RequestRepository) listSettlementRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	var rows []struct {
		RequestID    uuid.UUID
		SettlementID uuid.UUID
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT sr.request_id, sr.settlement_id
		FROM settlement_requests sr
		JOIN settlements s ON s.id = sr.settlement_id
		WHERE sr.request_id IN ? AND s.state <> 'rechazada'
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID][]uuid.UUID, len(rows))
	for _, row := range rows {
		result[row.RequestID] = append(result[row.RequestID], row.SettlementID)
	}
	return result, nil
}
