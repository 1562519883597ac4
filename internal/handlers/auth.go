package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/equipped-com/platform-api/internal/auth"
	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/services"
	appErrors "github.com/equipped-com/platform-api/pkg/errors"
	"github.com/equipped-com/platform-api/pkg/response"
)

// AuthHandler serves login and signup.
type AuthHandler struct {
	users    *services.UserService
	accounts *services.AccountService
	jwt      *iauth.JWTService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService, accounts *services.AccountService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{users: users, accounts: accounts, jwt: jwt}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"omitempty,max=128"`
	Password    string `json:"password" validate:"required,min=8"`
	AccountName string `json:"account_name" validate:"omitempty,max=128"`
	Slug        string `json:"slug" validate:"required,min=2,max=63"`
}

type userDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type accountDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Error(c, appErrors.ErrInvalidCredentials)
			return
		}
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  toUserDTO(user),
	})
}

// POST /api/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, account, err := h.accounts.Signup(requestContext(c), services.SignupInput{
		Email:       req.Email,
		Name:        req.Name,
		Password:    req.Password,
		AccountName: req.AccountName,
		Slug:        req.Slug,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			response.Error(c, appErrors.NewBadRequest("An account already exists for this email address"))
		case errors.Is(err, services.ErrSlugTaken):
			response.Error(c, appErrors.NewBadRequest("This account URL is already taken"))
		case errors.Is(err, services.ErrInvalidSlug):
			response.Error(c, appErrors.NewBadRequest("Account URL may only contain lowercase letters, digits, and hyphens"))
		default:
			response.Error(c, appErrors.ErrInternalServer)
		}
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token": token,
		"user":  toUserDTO(user),
		"account": accountDTO{
			ID:   account.ID,
			Name: account.Name,
			Slug: account.Slug,
		},
	})
}

func (h *AuthHandler) issueToken(user *models.User) (string, error) {
	return h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID: user.ID,
		Email:  user.Email,
	})
}

func toUserDTO(user *models.User) userDTO {
	return userDTO{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}
