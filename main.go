package main

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/cppla/frypillows/audit"
	"github.com/cppla/frypillows/config"
	"github.com/cppla/frypillows/controllers"
	"github.com/cppla/frypillows/middleware"
	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/review"
	"github.com/cppla/frypillows/routes"
	"github.com/cppla/frypillows/settings"
	"github.com/cppla/frypillows/storage"
	"github.com/cppla/frypillows/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	ctx := context.Background()
	stopTracing := utils.InitTracing(ctx, cfg)

	publicKey, err := middleware.ParsePublicKey(cfg.DiscordPublicKey)
	if err != nil {
		utils.Sugar.Fatalf("discord config: %v", err)
	}

	buckets, closeBuckets, err := storage.OpenBuckets(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("object storage: %v", err)
	}

	// SETTINGS_MODE=memory runs without Redis, claims included.
	var rc *redis.Client
	if cfg.SettingsMode != "memory" {
		rc = utils.GetRedis()
	}
	var guildSettings settings.Store
	if rc == nil {
		utils.Sugar.Warn("guild settings kept in memory, they will not survive a restart")
		guildSettings = settings.NewMemoryStore()
	} else {
		guildSettings = settings.NewRedisStore(rc)
	}

	db, err := config.OpenDatabase(cfg, &models.ReviewRecord{})
	if err != nil {
		utils.Sugar.Fatalf("review log database: %v", err)
	}
	trail := audit.NewTrail(db)

	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		utils.Sugar.Fatalf("discord session: %v", err)
	}
	if cfg.DiscordRegisterCommands {
		registerCommands(session, cfg)
	}

	log := utils.Logger
	machine := review.NewMachine(buckets.Pending, buckets.Pillows, cfg.PillowPublicBaseURL, log)
	reviews := review.NewService(
		review.NewGate(guildSettings),
		machine,
		review.NewSequencer(review.NewSessionPlatform(session), log),
		utils.NewClaimStore(rc),
		trail,
		log,
		review.Options{TaskTimeout: cfg.ReviewTaskTimeout, ClaimTTL: cfg.ReviewClaimTTL},
	)
	maxBytes := int64(cfg.MaxUploadMB) << 20
	commands := controllers.NewCommands(guildSettings, buckets.Pending, &http.Client{Timeout: 10 * time.Second}, maxBytes, log)

	r := routes.SetupRouter(cfg, routes.Deps{
		Buckets:   buckets,
		Settings:  guildSettings,
		Trail:     trail,
		Commands:  commands,
		Buttons:   reviews,
		PublicKey: publicKey,
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r,
		func(ctx context.Context) {
			if err := closeBuckets(); err != nil {
				utils.Sugar.Warnf("storage close: %v", err)
			}
		},
		func(ctx context.Context) {
			if err := stopTracing(ctx); err != nil {
				utils.Sugar.Warnf("tracing shutdown: %v", err)
			}
		},
		func(context.Context) { _ = utils.Logger.Sync() },
	)
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// registerCommands overwrites the slash commands globally, or per guild when guild ids are configured.
func registerCommands(s *discordgo.Session, cfg config.AppConfig) {
	if cfg.DiscordAppID == "" || cfg.DiscordBotToken == "" {
		utils.Sugar.Warn("command registration skipped: DISCORD_APP_ID and DISCORD_BOT_TOKEN are required")
		return
	}
	scopes := cfg.DiscordGuildIDs
	if len(scopes) == 0 {
		scopes = []string{""}
	}
	for _, guildID := range scopes {
		cmds, err := s.ApplicationCommandBulkOverwrite(cfg.DiscordAppID, guildID, controllers.CommandDefinitions())
		if err != nil {
			utils.Sugar.Errorf("register commands guild=%q: %v", guildID, err)
			continue
		}
		utils.Sugar.Infof("registered %d commands guild=%q", len(cmds), guildID)
	}
}
