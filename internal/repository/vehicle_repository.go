package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetByIDs resolves each vehicle together with its owner: a company
// directly, or a person and the company that person belongs to.
func (r *VehicleRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vehicle, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []struct {
		ID               uuid.UUID
		Plate            string
		FleetType        string
		OwnerKind        string
		OwnerID          *uuid.UUID
		OwnerName        string
		OwnerEmail       string
		OwnerCompanyID   *uuid.UUID
		OwnerCompanyName string
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			v.id,
			v.plate,
			v.fleet_type,
			v.owner_kind,
			CASE WHEN v.owner_kind = 'empresa' THEN oc.id ELSE op.id END AS owner_id,
			COALESCE(CASE WHEN v.owner_kind = 'empresa' THEN oc.name ELSE op.full_name END, '') AS owner_name,
			COALESCE(CASE WHEN v.owner_kind = 'empresa' THEN oc.email ELSE op.email END, '') AS owner_email,
			pc.id AS owner_company_id,
			COALESCE(pc.name, '') AS owner_company_name
		FROM vehicles v
		LEFT JOIN companies oc ON oc.id = v.owner_company_id
		LEFT JOIN persons op ON op.id = v.owner_person_id
		LEFT JOIN companies pc ON pc.id = op.company_id
		WHERE v.id IN ?
		ORDER BY v.plate ASC
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	vehicles := make([]model.Vehicle, 0, len(rows))
	for _, row := range rows {
		ownerID := uuid.Nil
		if row.OwnerID != nil {
			ownerID = *row.OwnerID
		}
		vehicles = append(vehicles, model.Vehicle{
			ID:               row.ID,
			Plate:            row.Plate,
			FleetType:        model.FleetType(row.FleetType),
			OwnerKind:        model.OwnerKind(row.OwnerKind),
			OwnerID:          ownerID,
			OwnerName:        row.OwnerName,
			OwnerEmail:       row.OwnerEmail,
			OwnerCompanyID:   row.OwnerCompanyID,
			OwnerCompanyName: row.OwnerCompanyName,
		})
	}
	return vehicles, nil
}
