package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vinshon/buildxup-backend/internal/config"
	"github.com/vinshon/buildxup-backend/internal/http/handler"
	httpmiddleware "github.com/vinshon/buildxup-backend/internal/http/middleware"
	"github.com/vinshon/buildxup-backend/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	authHandler *handler.AuthHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware *httpmiddleware.Auth,
	rateLimiter *middleware.RateLimiter,
) *gin.Engine {
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		otp := authGroup.Group("/otp")
		{
			otp.POST("/request", authHandler.RequestOTP)
			otp.POST("/verify", authHandler.VerifyOTP)
		}

		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", authMiddleware.RequireToken, authHandler.Me)
	}

	r.GET("/healthz", healthHandler.Check)

	return r
}
