package services

import (
	"repair-system/internal/entities"
	apperrors "repair-system/pkg/errors"
)

// Таблица допустимых переходов статуса. Единственное место, где
// закодирован жизненный цикл: RECEIVED -> REPAIR -> REPAIRED ->
// DELIVERED, отмена из RECEIVED и REPAIR, возврат REPAIRED -> REPAIR
// на доработку. DELIVERED и CANCELLED терминальны (реактивация отмены -
// отдельная административная операция, не переход).
var allowedTransitions = map[string][]string{
	entities.EquipmentStatusReceived:  {entities.EquipmentStatusRepair, entities.EquipmentStatusCancelled},
	entities.EquipmentStatusRepair:    {entities.EquipmentStatusRepaired, entities.EquipmentStatusCancelled},
	entities.EquipmentStatusRepaired:  {entities.EquipmentStatusDelivered, entities.EquipmentStatusRepair},
	entities.EquipmentStatusDelivered: {},
	entities.EquipmentStatusCancelled: {},
}

var statusNames = map[string]string{
	entities.EquipmentStatusReceived:  "Принято",
	entities.EquipmentStatusRepair:    "В ремонте",
	entities.EquipmentStatusRepaired:  "Отремонтировано",
	entities.EquipmentStatusDelivered: "Выдано",
	entities.EquipmentStatusCancelled: "Отменено",
}

func IsValidStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(current, next string) bool {
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition проверяет пару (текущий, новый) по таблице.
func ValidateTransition(current, next string) error {
	if !IsValidStatus(next) {
		return apperrors.NewValidationError("неизвестный статус: %s", next)
	}
	if !CanTransition(current, next) {
		return apperrors.NewStateConflictError(
			"переход %s -> %s не допускается", statusNames[current], statusNames[next])
	}
	return nil
}

// ValidateActor применяет ролевые ограничения: администратор может
// выполнить любой табличный переход, мастер - только REPAIR -> REPAIRED
// и только на закреплённом за ним оборудовании.
func ValidateActor(role string, actorID uint64, equipment *entities.Equipment, next string) error {
	switch role {
	case entities.RoleAdministrator:
		return nil
	case entities.RoleTechnician:
		if equipment.Status != entities.EquipmentStatusRepair || next != entities.EquipmentStatusRepaired {
			return apperrors.NewPermissionError("мастер может только завершать ремонт")
		}
		if !equipment.TechnicianID.Valid || uint64(equipment.TechnicianID.Int64) != actorID {
			return apperrors.NewPermissionError("оборудование %s не закреплено за вами", equipment.Code)
		}
		return nil
	default:
		return apperrors.NewPermissionError("роль %s не допускает смену статуса", role)
	}
}
