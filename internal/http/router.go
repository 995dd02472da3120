package api

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"userserve/internal/config"
	h "userserve/internal/http/handlers"
	"userserve/internal/http/middleware"
	"userserve/internal/services"
	"userserve/internal/store"
)

func NewRouter(cfg config.Config, st store.Store, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		gin.Recovery(),
		middleware.CORS(cfg.CORSOrigin),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "User service running")
	})

	users := &h.Users{
		Svc:       services.NewCommonserve(st, log),
		Store:     st,
		Log:       log,
		JWTSecret: []byte(cfg.JWTSecret),
	}
	system := &h.System{Store: st}

	api := r.Group("/api")
	{
		api.GET("/health", system.Health)
		api.GET("/db-check", system.DBCheck)

		u := api.Group("/users")
		u.Use(middleware.AuthOptional(users.JWTSecret))

		// Authentication
		u.POST("/register", users.Register)
		u.POST("/login", users.Login)
		u.POST("/logout", users.Logout)

		// User CRUD
		u.GET("/getAll", users.GetAll)
		u.GET("/filter", users.Filter)
		u.POST("/create", users.Create)
		u.GET("/get/:id", users.GetByID)
		u.PUT("/update/:id", users.Update)
		u.DELETE("/delete/:id", users.Delete)
	}

	return r
}
