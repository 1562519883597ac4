package database

import (
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.AccountAccess{},
		&models.Invitation{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	return createOpenInvitationIndex(db)
}

// createOpenInvitationIndex enforces at most one non-terminal invitation per
// (account_id, email) pair. SQLite and Postgres support partial unique
// indexes; MySQL does not, so there the service-level duplicate check is the
// only enforcement.
func createOpenInvitationIndex(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		return db.Exec(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_open_email " +
				"ON invitations (account_id, email) " +
				"WHERE accepted_at IS NULL AND declined_at IS NULL AND revoked_at IS NULL",
		).Error
	default:
		return nil
	}
}
