package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
)

// ErrContextMissing indicates the acting account or the requester's membership
// in it could not be resolved.
var ErrContextMissing = errors.New("tenant: context missing")

// Context carries the resolved tenant identity for one request.
type Context struct {
	Account models.Account
	User    models.User
	Role    rbac.Role
}

// Resolver resolves the acting account, user, and role for a request.
// It is read-only and has no side effects.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("tenant resolver: db is required")
	}
	return &Resolver{db: db}, nil
}

// Resolve returns the tenant context for the authenticated user and account
// slug, failing with ErrContextMissing when any required piece is absent.
func (r *Resolver) Resolve(ctx context.Context, userID, slug string) (*Context, error) {
	userID = strings.TrimSpace(userID)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if userID == "" || slug == "" {
		return nil, ErrContextMissing
	}

	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContextMissing
		}
		return nil, fmt.Errorf("tenant resolver: load account: %w", err)
	}

	var access models.AccountAccess
	if err := r.db.WithContext(ctx).
		First(&access, "account_id = ? AND user_id = ?", account.ID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContextMissing
		}
		return nil, fmt.Errorf("tenant resolver: load access: %w", err)
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContextMissing
		}
		return nil, fmt.Errorf("tenant resolver: load user: %w", err)
	}

	return &Context{Account: account, User: user, Role: access.Role}, nil
}

// ResolveOptional behaves like Resolve but tolerates absence: endpoints that
// work without a tenant receive ok=false instead of an error. Infrastructure
// failures are still surfaced.
func (r *Resolver) ResolveOptional(ctx context.Context, userID, slug string) (*Context, bool, error) {
	tc, err := r.Resolve(ctx, userID, slug)
	if err != nil {
		if errors.Is(err, ErrContextMissing) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return tc, true, nil
}
