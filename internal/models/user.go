package models

// User is a global identity. Tenant membership lives in AccountAccess;
// a user may belong to zero or more accounts.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `json:"name"`
	Password string `gorm:"not null" json:"-"`
}
