package models

import "github.com/equipped-com/platform-api/internal/rbac"

// AccountAccess materialises the grant of a role to a user within an account.
// Created when an invitation is accepted or when an owner is provisioned at
// account creation.
type AccountAccess struct {
	BaseModel

	AccountID string    `gorm:"type:uuid;not null;uniqueIndex:idx_account_access_account_user" json:"account_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_account_access_account_user" json:"user_id"`
	Role      rbac.Role `gorm:"not null" json:"role"`

	Account *Account `json:"account,omitempty"`
	User    *User    `json:"user,omitempty"`
}
