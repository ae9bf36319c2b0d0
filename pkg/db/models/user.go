package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the account fields the settlement engine needs. Coins is a
// denormalized balance that must stay in sync with the sum of the user's coin
// transactions; every balance mutation goes through a conditional update paired
// with a ledger insert in the same transaction.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Email     *string   `gorm:"column:email"`
	Premium   bool      `gorm:"column:premium;not null;default:false"`
	Coins     int       `gorm:"column:coins;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
