package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractType string

const (
	ContractTypeFixed ContractType = "fijo"
)

type BudgetPeriod string

const (
	BudgetPeriodYear  BudgetPeriod = "anual"
	BudgetPeriodMonth BudgetPeriod = "mensual"
	BudgetPeriodWeek  BudgetPeriod = "semanal"
	BudgetPeriodDay   BudgetPeriod = "diario"
)

type ChargeMode string

const (
	ChargeModeWithinContract  ChargeMode = "dentro_contrato"
	ChargeModeOutsideContract ChargeMode = "fuera_contrato"
)

type ContractEventKind string

const (
	ContractEventBudgetSet     ContractEventKind = "presupuesto"
	ContractEventServiceCharge ContractEventKind = "cargo_servicio"
	ContractEventManualAdjust  ContractEventKind = "ajuste_manual"
)

// PricingTable holds the agreed rates for a fixed contract.
type PricingTable struct {
	HourRate   float64
	KmRate     float64
	TripRate   float64
	TariffRate float64
}

// Contract is a fixed-budget agreement between the operating company and
// one client. Consumption only moves through logged events; BudgetCap nil
// means no ceiling is tracked (charges are still recorded, never refused).
type Contract struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	ClientID     uuid.UUID
	ClientName   string
	Type         ContractType
	Pricing      PricingTable
	BudgetPeriod BudgetPeriod
	BudgetCap    *float64
	Consumed     float64
	Active       bool
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	Events       []ContractEvent
}

// ContractEvent is one append-only ledger mutation. Never edited or removed.
type ContractEvent struct {
	ID               uuid.UUID
	ContractID       uuid.UUID
	Kind             ContractEventKind
	PrevCap          *float64
	NewCap           *float64
	PrevConsumed     float64
	NewConsumed      float64
	ServiceRequestID *uuid.UUID
	Amount           float64
	Mode             ChargeMode
	Actor            uuid.UUID
	Notes            string
	CreatedAt        time.Time
}
