package model

import (
	"time"

	"github.com/google/uuid"
)

type PayableState string

const (
	PayablePending    PayableState = "pendiente"
	PayableCalculated PayableState = "calculada"
	PayablePaid       PayableState = "pagada"
	PayableCancelled  PayableState = "cancelada"
)

// PayableItem is one aggregated line inside a payable account, fed by one
// vehicle settlement line.
type PayableItem struct {
	ID                  uuid.UUID
	PayableAccountID    uuid.UUID
	VehicleSettlementID uuid.UUID
	VehicleID           uuid.UUID
	Plate               string
	Base                float64
	Deducted            float64
	Net                 float64
	CreatedAt           time.Time
}

// PayableAccount (cuenta de cobro) groups the amounts owed to one external
// or affiliated owner for one service request. Totals are recomputed from
// the items on every append.
type PayableAccount struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	PayeeKind        OwnerKind
	PayeeID          uuid.UUID
	PayeeName        string
	ServiceRequestID uuid.UUID
	Base             float64
	Deducted         float64
	Net              float64
	State            PayableState
	SupportDocument  string
	Items            []PayableItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
