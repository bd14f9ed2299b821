package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pendiente"
	RequestStatusAccepted RequestStatus = "aceptada"
	RequestStatusRejected RequestStatus = "rechazada"
)

type ExecutionStatus string

const (
	ExecutionNotStarted ExecutionStatus = "sin_iniciar"
	ExecutionStarted    ExecutionStatus = "iniciada"
	ExecutionFinished   ExecutionStatus = "finalizada"
)

type BillingStatus string

const (
	BillingNotInvoiced   BillingStatus = "sin_facturar"
	BillingInvoiced      BillingStatus = "facturada"
	BillingReadyToSettle BillingStatus = "por_liquidar"
)

// VehicleAssignment is one vehicle placed on a service request. A request
// with more than one assignment is a multi-vehicle request; its billed
// value belongs to the request as a whole until settlement splits it.
type VehicleAssignment struct {
	VehicleID      uuid.UUID
	DriverID       *uuid.UUID
	Seats          int
	ContractMode   *ChargeMode
	ContractAmount *float64
}

// ServiceRequest (solicitud) is one transportation job.
type ServiceRequest struct {
	ID            uuid.UUID
	LogbookID     uuid.UUID
	Code          string
	ClientID      uuid.UUID
	ClientName    string
	StartAt       time.Time
	EndAt         time.Time
	Origin        string
	Destination   string
	Assignments   []VehicleAssignment
	ClientValue   float64
	PaidValue     float64
	Utility       float64
	Status        RequestStatus
	Execution     ExecutionStatus
	Billing       BillingStatus
	InvoiceNumber string
	SettlementIDs []uuid.UUID
	CreatedAt     time.Time
}

// Invoiced reports whether the request carries an invoice reference. A
// request already pulled into a settlement keeps counting as invoiced.
func (r ServiceRequest) Invoiced() bool {
	return r.InvoiceNumber != "" || r.Billing == BillingInvoiced || r.Billing == BillingReadyToSettle
}
