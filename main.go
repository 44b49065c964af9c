package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-bot/bot"
	"storefront-bot/config"
	"storefront-bot/events"
	"storefront-bot/handlers"
	"storefront-bot/lang"
	"storefront-bot/observability"
	"storefront-bot/permissions"
	"storefront-bot/spamguard"
	"storefront-bot/storage"
	"storefront-bot/storefront"
	"storefront-bot/tickets"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "storefront-bot",
		Usage: "storefront support bot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.json", Usage: "path to the JSON config file", EnvVars: []string{"CONFIG_PATH"}},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "connect to the gateway and serve interactions",
				Action: run,
			},
			{
				Name:  "commands",
				Usage: "manage slash command registration",
				Subcommands: []*cli.Command{
					{Name: "register", Usage: "register every slash command", Action: registerCommands},
					{Name: "clear", Usage: "remove every slash command", Action: clearCommands},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		var missing *config.MissingVarsError
		if errors.As(err, &missing) {
			for _, v := range missing.Vars {
				fmt.Fprintf(os.Stderr, "  - %s\n", v)
			}
		}
		return nil, nil, err
	}
	if cfg.LangFile != "" {
		if _, err := lang.Load(cfg.LangFile); err != nil {
			return nil, nil, fmt.Errorf("load language file: %w", err)
		}
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// app is everything run and the command subcommands share.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	bot        *bot.Bot
	kv         storage.KV
	publisher  events.Publisher
	manager    *tickets.Manager
	guard      *spamguard.Guard
	dispatcher *handlers.Dispatcher
	registry   *prometheus.Registry
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	kv, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warn("event publishing disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}

	b, err := bot.New(cfg, logger)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("create session: %w", err)
	}
	platform := bot.NewPlatform(b.Session)

	guilds := config.NewStore(kv, logger)
	resolver := permissions.NewResolver(cfg.Permissions)
	store := tickets.NewStore(kv, logger)
	if err := store.Load(ctx); err != nil {
		_ = kv.Close()
		return nil, err
	}

	manager := tickets.NewManager(tickets.Deps{
		Store:     store,
		Guilds:    guilds,
		Resolver:  resolver,
		Platform:  platform,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
	}, tickets.OptionsFromConfig(cfg.Tickets))

	guard := spamguard.New(cfg.SpamGuard.Window.Std(), cfg.SpamGuard.Threshold, logger)
	dispatcher, err := handlers.NewDispatcher(handlers.Deps{
		Platform:  platform,
		Tickets:   manager,
		Guilds:    guilds,
		Resolver:  resolver,
		Guard:     guard,
		Cooldowns: spamguard.NewCooldowns(),
		Invoices:  storefront.New(cfg.Storefront, metrics, logger),
		Metrics:   metrics,
		Logger:    logger,
	}, handlers.Options{
		DefaultCooldown: cfg.SpamGuard.DefaultCooldown.Std(),
		SpamWindow:      cfg.SpamGuard.Window.Std(),
		CommandGuildID:  cfg.Discord.GuildID,
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		bot:        b,
		kv:         kv,
		publisher:  publisher,
		manager:    manager,
		guard:      guard,
		dispatcher: dispatcher,
		registry:   reg,
	}, nil
}

func (a *app) close() {
	a.manager.Shutdown()
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("closing event publisher", zap.Error(err))
	}
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("closing storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func run(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	a.bot.Session.AddHandler(a.dispatcher.HandleInteraction)
	a.bot.Session.AddHandler(a.dispatcher.HandleMessage)

	var srv *observability.Server
	if cfg.Metrics.Addr != "" {
		srv = observability.NewServer(cfg.Metrics.Addr, observability.NewRouter(a.registry, a.bot.Ready), logger)
		srv.Start()
	}

	if err := a.bot.Start(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer a.bot.Stop()

	if n := a.manager.RecoverTeardowns(ctx); n > 0 {
		logger.Info("rescheduled channel teardowns", zap.Int("tickets", n))
	}
	go a.manager.RunSweeper(ctx, cfg.Tickets.SweepInterval.Std())
	go a.guard.Run(ctx, cfg.SpamGuard.CleanupInterval.Std())

	if _, err := a.bot.RegisterCommands(a.dispatcher.Registry().Definitions()); err != nil {
		logger.Error("registering slash commands failed", zap.Error(err))
	}

	logger.Info("bot is running")
	<-ctx.Done()
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}

func registerCommands(c *cli.Context) error {
	return withGateway(c, func(a *app) error {
		registered, err := a.bot.RegisterCommands(a.dispatcher.Registry().Definitions())
		if err != nil {
			return err
		}
		fmt.Printf("registered %d commands\n", len(registered))
		return nil
	})
}

func clearCommands(c *cli.Context) error {
	return withGateway(c, func(a *app) error {
		return a.bot.CleanupCommands()
	})
}

func withGateway(c *cli.Context, fn func(*app) error) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := build(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.bot.Start(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer a.bot.Stop()
	return fn(a)
}
