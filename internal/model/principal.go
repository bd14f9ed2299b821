package model

import "github.com/google/uuid"

// Principal is the authenticated caller resolved from the access token.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      string
}

func (p Principal) IsAdmin() bool       { return p.Role == "ADMIN" }
func (p Principal) IsAccounting() bool  { return p.Role == "CONTABILIDAD" }
func (p Principal) IsCoordinator() bool { return p.Role == "COORDINADOR" }
func (p Principal) IsDriver() bool      { return p.Role == "CONDUCTOR" }
