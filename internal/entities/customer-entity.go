package entities

import (
	"repair-system/pkg/types"
)

type Customer struct {
	ID    uint64 `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`

	types.BaseEntity
}
