package model

import "github.com/google/uuid"

type FleetType string

const (
	FleetOwned      FleetType = "propio"
	FleetAffiliated FleetType = "afiliado"
	FleetExternal   FleetType = "externo"
)

type OwnerKind string

const (
	OwnerCompany OwnerKind = "empresa"
	OwnerPerson  OwnerKind = "persona"
)

// Vehicle carries the live fleet record plus its resolved owner. When the
// owner is a person who belongs to a company, that company is the payee.
type Vehicle struct {
	ID               uuid.UUID
	Plate            string
	FleetType        FleetType
	OwnerKind        OwnerKind
	OwnerID          uuid.UUID
	OwnerName        string
	OwnerEmail       string
	OwnerCompanyID   *uuid.UUID
	OwnerCompanyName string
}

// Payee resolves who gets paid for this vehicle's settled services.
func (v Vehicle) Payee() (OwnerKind, uuid.UUID, string) {
	if v.OwnerKind == OwnerPerson && v.OwnerCompanyID != nil {
		return OwnerCompany, *v.OwnerCompanyID, v.OwnerCompanyName
	}
	return v.OwnerKind, v.OwnerID, v.OwnerName
}
