package routes

import (
	"crypto/ed25519"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cppla/frypillows/audit"
	"github.com/cppla/frypillows/config"
	"github.com/cppla/frypillows/controllers"
	"github.com/cppla/frypillows/middleware"
	"github.com/cppla/frypillows/settings"
	"github.com/cppla/frypillows/storage"
	"github.com/cppla/frypillows/utils"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Buckets   storage.Buckets
	Settings  settings.Store
	Trail     *audit.Trail
	Commands  controllers.CommandHandler
	Buttons   controllers.ButtonHandler
	PublicKey ed25519.PublicKey
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	if cfg.OtelEnabled {
		r.Use(otelgin.Middleware("frypillows"))
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	interactions := controllers.NewInteractionController(deps.Commands, deps.Buttons, utils.Logger)
	r.POST("/interactions", middleware.DiscordSignature(deps.PublicKey), interactions.Handle)

	maxBytes := int64(cfg.MaxUploadMB) << 20
	pillows := controllers.NewPillowController(deps.Buckets.Pillows, maxBytes)
	photos := controllers.NewPhotoController(deps.Buckets.Photos, maxBytes)
	guildSettings := controllers.NewSettingsController(deps.Settings)

	api := r.Group("")
	api.Use(middleware.APITokenRequired(cfg.APIToken), middleware.RateLimit(cfg.RateLimitPerMinute))

	pillowGroup := api.Group("/pillow")
	pillowGroup.GET("/list", pillows.List)
	pillowGroup.GET("/image/:id", pillows.Image)
	pillowGroup.GET("/data/:id", pillows.Data)
	pillowGroup.POST("/upload", pillows.Upload)
	pillowGroup.DELETE("/delete/:id", pillows.Delete)
	if deps.Trail != nil {
		pillowGroup.GET("/reviews", controllers.NewReviewController(deps.Trail).List)
	}

	photoGroup := api.Group("/photos")
	photoGroup.GET("/list", photos.List)
	photoGroup.GET("/image/:id", photos.Image)
	photoGroup.GET("/data/:id", photos.Data)
	photoGroup.POST("/upload", photos.Upload)
	photoGroup.DELETE("/delete/:id", photos.Delete)

	api.GET("/settings/:guildId", guildSettings.Get)
	api.POST("/settings/:guildId", guildSettings.Update)
	api.PATCH("/settings/:guildId", guildSettings.Update)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
