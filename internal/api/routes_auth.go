package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/equipped-com/platform-api/internal/auth"
	"github.com/equipped-com/platform-api/internal/handlers"
	"github.com/equipped-com/platform-api/internal/services"
)

func registerAuthRoutes(r *gin.Engine, users *services.UserService, accounts *services.AccountService, jwt *iauth.JWTService) {
	authHandler := handlers.NewAuthHandler(users, accounts, jwt)

	r.POST("/api/auth/login", authHandler.Login)
	r.POST("/api/signup", authHandler.Signup)
}
