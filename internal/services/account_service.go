package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
)

var (
	// ErrSlugTaken indicates another account already uses the slug.
	ErrSlugTaken = errors.New("account service: slug already taken")
	// ErrInvalidSlug rejects slugs that cannot serve as a subdomain label.
	ErrInvalidSlug = errors.New("account service: invalid slug")
	// ErrAccountNotFound indicates no account matches the lookup.
	ErrAccountNotFound = errors.New("account service: not found")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// AccountService provisions accounts. Every account is created with an owner;
// there is no path to an ownerless account.
type AccountService struct {
	db    *gorm.DB
	users *UserService
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, users *UserService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if users == nil {
		return nil, errors.New("account service: user service is required")
	}
	return &AccountService{db: db, users: users}, nil
}

// CreateAccountInput carries the fields for provisioning an account with its owner.
type CreateAccountInput struct {
	Name      string
	Slug      string
	OwnerID   string
	OwnerName string
}

// Create provisions an account and grants the owner role inside one
// transaction, so a visible account always has at least one owner.
func (s *AccountService) Create(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = slug
	}

	owner, err := s.users.FindByID(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	account := &models.Account{Name: name, Slug: slug}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrSlugTaken
			}
			return fmt.Errorf("account service: create account: %w", err)
		}

		access := &models.AccountAccess{
			AccountID: account.ID,
			UserID:    owner.ID,
			Role:      rbac.RoleOwner,
		}
		if err := tx.Create(access).Error; err != nil {
			return fmt.Errorf("account service: grant owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// SignupInput provisions a new user together with their first account.
type SignupInput struct {
	Email       string
	Name        string
	Password    string
	AccountName string
	Slug        string
}

// Signup registers the user and provisions their account. The user create and
// the account provisioning run in one transaction.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*models.User, *models.Account, error) {
	ctx = ensureContext(ctx)

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, nil, ErrInvalidSlug
	}

	var (
		user    *models.User
		account *models.Account
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUsers := &UserService{db: tx}
		created, err := txUsers.Create(ctx, CreateUserInput{
			Email:    input.Email,
			Name:     input.Name,
			Password: input.Password,
		})
		if err != nil {
			return err
		}

		txAccounts := &AccountService{db: tx, users: txUsers}
		provisioned, err := txAccounts.Create(ctx, CreateAccountInput{
			Name:    input.AccountName,
			Slug:    slug,
			OwnerID: created.ID,
		})
		if err != nil {
			return err
		}

		user = created
		account = provisioned
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return user, account, nil
}

// FindBySlug returns the account registered under the slug.
func (s *AccountService) FindBySlug(ctx context.Context, slug string) (*models.Account, error) {
	ctx = ensureContext(ctx)

	var account models.Account
	err := s.db.WithContext(ctx).
		First(&account, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account service: find by slug: %w", err)
	}
	return &account, nil
}
