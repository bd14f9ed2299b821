package model

import (
	"time"

	"github.com/google/uuid"
)

type SettlementState string

const (
	SettlementPending  SettlementState = "pendiente"
	SettlementApproved SettlementState = "aprobada"
	SettlementRejected SettlementState = "rechazada"
)

type LineState string

const (
	LineStatePending        LineState = "pendiente"
	LineStateSettledUnpaid  LineState = "liquidado_sin_pagar"
	LineStatePaid           LineState = "pagado"
)

// VehicleSettlement is one per-vehicle sub-ledger line inside a settlement.
// Plate, fleet type and payee are snapshots taken at settlement time and
// are never re-resolved from the live vehicle record.
type VehicleSettlement struct {
	ID               uuid.UUID
	SettlementID     uuid.UUID
	VehicleID        uuid.UUID
	Plate            string
	FleetType        FleetType
	PayeeKind        OwnerKind
	PayeeID          uuid.UUID
	PayeeName        string
	PayeeEmail       string
	RequestIDs       []uuid.UUID
	ExpenseIDs       []uuid.UUID
	Services         float64
	Expenses         float64
	Net              float64
	State            LineState
	PayableAccountID *uuid.UUID
}

// SendRecord is one dispatched settlement email.
type SendRecord struct {
	Recipient string
	SentBy    uuid.UUID
	SentAt    time.Time
}

// Settlement (preliquidación) is the result of one settlement run: the
// exact request and expense sets included, one sub-ledger per vehicle and
// the consolidated totals. State moves pendiente→aprobada or
// pendiente→rechazada, never further.
type Settlement struct {
	ID                  uuid.UUID
	CompanyID           uuid.UUID
	Number              string
	GeneratedAt         time.Time
	ClientName          string
	RequestIDs          []uuid.UUID
	OperationalIDs      []uuid.UUID
	PreoperationalIDs   []uuid.UUID
	Lines               []VehicleSettlement
	TotalServices       float64
	TotalOperational    float64
	TotalPreoperational float64
	TotalNet            float64
	State               SettlementState
	ApprovedBy          *uuid.UUID
	ApprovedAt          *time.Time
	RejectedBy          *uuid.UUID
	RejectedAt          *time.Time
	Notes               string
	SentToClient        bool
	SendLog             []SendRecord
	CreatedBy           uuid.UUID
	CreatedAt           time.Time
}

// ExpenseIDs returns the operational and pre-operational sets as one list.
func (s Settlement) ExpenseIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.OperationalIDs)+len(s.PreoperationalIDs))
	ids = append(ids, s.OperationalIDs...)
	ids = append(ids, s.PreoperationalIDs...)
	return ids
}

// SettlementFilter narrows and pages a settlement listing.
type SettlementFilter struct {
	CompanyID uuid.UUID
	State     *SettlementState
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// SettlementDocument is what the PDF renderer receives.
type SettlementDocument struct {
	Settlement  Settlement
	CompanyName string
}
