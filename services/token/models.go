package token

import (
	"time"
)

type Purpose string

const (
	PurposeConfirmation  Purpose = "registration_confirmation"
	PurposePasswordReset Purpose = "password_reset"
)

// VerificationToken is a single-use credential proving control of an
// account's email address. A token is only good for the purpose it was
// issued under and only inside its expiry window.
type VerificationToken struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Token         string     `json:"-" gorm:"uniqueIndex;size:64;not null"`
	UserAccountID uint       `json:"userAccountId" gorm:"index;not null"`
	Purpose       Purpose    `json:"purpose" gorm:"size:32;not null;index"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiresAt     time.Time  `json:"expiresAt" gorm:"not null"`
	Used          bool       `json:"used" gorm:"default:false"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
}

func (VerificationToken) TableName() string {
	return "verification_tokens"
}
