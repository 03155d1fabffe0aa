package model

import (
	"time"
)

const TableInstitution = "institutions"

// Institution holds the API credential pair used by the auth
// middleware. Credentials are issued by an external admin flow,
// only validation happens here.
type Institution struct {
	Id     int    `gorm:"primaryKey" json:"id"`
	Name   string `json:"name"`
	ApiKey string `gorm:"uniqueIndex" json:"api_key"`

	// Hex sha256 of the api secret, the plaintext is never stored
	ApiSecretHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (Institution) TableName() string {
	return TableInstitution
}
