package models

// Account is a tenant. The slug doubles as the subdomain discriminator used
// for tenant resolution and never changes after signup.
type Account struct {
	BaseModel

	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
}
