// Файл: internal/entities/user-entity.go
package entities

import (
	"repair-system/pkg/types"
)

const (
	RoleAdministrator = "ADMINISTRATOR"
	RoleTechnician    = "TECHNICIAN"
)

const (
	UserStatusActive   = "ACTIVE"
	UserStatusInactive = "INACTIVE"
)

type User struct {
	ID    uint64 `json:"id" db:"id"`
	Fio   string `json:"fio" db:"fio"`
	Login string `json:"login" db:"login"`

	Password string `json:"-" db:"password"`

	Role   string `json:"role" db:"role"`
	Status string `json:"status" db:"status"`

	types.BaseEntity
}

// IsActiveTechnician - только такие пользователи участвуют в назначении
// на ремонт и в распределении выплат.
func (u *User) IsActiveTechnician() bool {
	return u.Role == RoleTechnician && u.Status == UserStatusActive
}
