package account

import (
	"time"
)

// UserAccount is a member of a sending or receiving organization.
// Accounts start unconfirmed and cannot authenticate until the owner
// proves control of the email address.
type UserAccount struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:254;not null"`
	Name         string     `json:"name" gorm:"size:255;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsAdmin      bool       `json:"isAdmin" gorm:"default:false"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (UserAccount) TableName() string {
	return "user_accounts"
}

func (u *UserAccount) Confirmed() bool {
	return u.ConfirmedAt != nil
}
