package httptransport

import (
	"log/slog"

	"github.com/ErlanBelekov/prompt-library/internal/session"
	"github.com/ErlanBelekov/prompt-library/internal/transport/http/handler"
	"github.com/ErlanBelekov/prompt-library/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterConfig struct {
	JWTKey         []byte
	SessionStore   session.Store
	SessionOptions session.Options
}

func NewRouter(logger *slog.Logger, cfg RouterConfig, authHandler *handler.AuthHandler, users middleware.UserFinder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
	}))
	r.Use(middleware.Metrics())

	// OTP flows keep their state in a server-side session.
	auth := r.Group("/auth", session.Middleware(cfg.SessionStore, cfg.SessionOptions, logger))
	auth.POST("/register", authHandler.Register)
	auth.POST("/register/verify", authHandler.VerifyRegister)
	auth.POST("/login", authHandler.Login)
	auth.POST("/login/verify", authHandler.VerifyLogin)
	auth.POST("/password/forgot", authHandler.ForgotPassword)
	auth.POST("/password/verify", authHandler.VerifyReset)
	auth.POST("/password/reset", authHandler.ResetPassword)
	auth.POST("/otp/resend/:purpose", authHandler.Resend)
	auth.POST("/logout", authHandler.Logout)

	r.GET("/me", middleware.Auth(cfg.JWTKey), middleware.LoadUser(users, logger), authHandler.Me)

	return r
}
