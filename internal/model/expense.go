package model

import (
	"time"

	"github.com/google/uuid"
)

type ExpenseKind string

const (
	ExpenseOperational    ExpenseKind = "operativo"
	ExpensePreoperational ExpenseKind = "preoperativo"
)

type ExpenseState string

const (
	ExpenseUnliquidated ExpenseState = "no_liquidado"
	ExpenseLiquidated   ExpenseState = "liquidado"
)

// ExpenseItem is one itemized charge: fuel, tolls, repairs, fines, parking
// for operational expenses; an inspection finding with a value for
// pre-operational ones.
type ExpenseItem struct {
	ID      uuid.UUID
	Concept string
	Value   float64
}

// Expense groups one or more itemized charges against a single vehicle.
// State only moves through the settlement engine. SettlementID is the
// claim marker set when a live settlement takes the expense and cleared
// again on rejection.
type Expense struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	VehicleID    uuid.UUID
	Kind         ExpenseKind
	State        ExpenseState
	SettlementID *uuid.UUID
	Items        []ExpenseItem
	CreatedAt    time.Time
}

func (e Expense) Total() float64 {
	var total float64
	for _, item := range e.Items {
		total += item.Value
	}
	return total
}
