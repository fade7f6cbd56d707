package services

import (
	"reliefledger/internal/common"
	"reliefledger/internal/models"
)

func requireAdmin(caller models.Caller, action string) error {
	if caller.IsAdmin() {
		return nil
	}
	return common.Forbidden(common.MsgForbiddenRole, string(caller.Role), action)
}

// requireSideAccess lets admins act anywhere and staff act only at their own shelter.
func requireSideAccess(caller models.Caller, side models.StockSide, action string) error {
	switch caller.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStaff:
		if side.IsProvincial() {
			return common.Forbidden(common.MsgForbiddenRole, string(caller.Role), action)
		}
		if !caller.AssignedTo(*side.ShelterID) {
			return common.Forbidden(common.MsgForbiddenShelter, side.ShelterID.String())
		}
		return nil
	}
	return common.Forbidden(common.MsgForbiddenRole, string(caller.Role), action)
}
