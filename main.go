package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/jonboulle/clockwork"

	"github.com/boxdropbot/boxdrop/boxdrop"
	"github.com/boxdropbot/boxdrop/boxdrop/commands"
	"github.com/boxdropbot/boxdrop/boxdrop/countdown"
	"github.com/boxdropbot/boxdrop/boxdrop/database"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
	"github.com/boxdropbot/boxdrop/boxdrop/drops"
	"github.com/boxdropbot/boxdrop/boxdrop/handlers"
	"github.com/boxdropbot/boxdrop/boxdrop/logger"
	"github.com/boxdropbot/boxdrop/boxdrop/messenger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := boxdrop.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting BoxDrop Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := boxdrop.New(*cfg, version, commit)
	b.DB = db
	b.ScheduleRepository = repositories.NewScheduleRepository(db.BunDB())
	b.RewardRepository = repositories.NewRewardRepository(db.BunDB())
	b.ClaimRepository = repositories.NewClaimRepository(db.BunDB())
	b.CountdownRepository = repositories.NewCountdownRepository(db.BunDB())

	h := handler.New()
	h.Command("/mysterybox", handlers.WrapWithLogging("mysterybox", commands.MysteryBoxHandler(b)))
	h.Command("/countdown", handlers.WrapWithLogging("countdown", commands.CountdownHandler(b)))
	h.Command("/version", commands.VersionHandler(b))
	h.Component("/boxclaim/", handlers.WrapComponentWithLogging("boxclaim", commands.ClaimButtonHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	// The drop scheduler and countdown manager need the gateway client
	// for outbound messages, so they are wired after SetupBot.
	clock := clockwork.NewRealClock()
	msgr := messenger.NewDiscord(b.Client)
	b.DropScheduler = drops.NewScheduler(b.ScheduleRepository, b.RewardRepository, b.ClaimRepository, msgr, clock, cfg.Drops.TicketChannelHint)
	b.Countdowns = countdown.NewManager(b.CountdownRepository, msgr, clock)

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
			os.Exit(-1)
		}
	}

	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	// Re-arm everything the store knows about. Persisted deadlines are
	// the source of truth; missed fires are clamped, never replayed.
	if err = b.DropScheduler.Resume(ctx); err != nil {
		slog.Error("Failed to resume drop schedules",
			slog.String("type", "drop"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	if err = b.Countdowns.Resume(ctx); err != nil {
		slog.Error("Failed to resume countdowns",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("BoxDrop is running",
		slog.String("type", "sys"))

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s

	slog.Info("Shutting down...",
		slog.String("type", "sys"))
	b.DropScheduler.Shutdown()
	b.Countdowns.Shutdown()
}
