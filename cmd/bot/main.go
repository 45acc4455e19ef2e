package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/telebot.v3"

	"training_reminder_bot/internal/app"
	"training_reminder_bot/internal/domain/preference"
	"training_reminder_bot/internal/domain/reminder"
	"training_reminder_bot/internal/domain/schedule"
	"training_reminder_bot/internal/infra/calendar"
	"training_reminder_bot/internal/infra/catalog"
	"training_reminder_bot/internal/infra/config"
	idb "training_reminder_bot/internal/infra/database"
	"training_reminder_bot/internal/infra/kvstore"
	"training_reminder_bot/internal/infra/logger"
	"training_reminder_bot/internal/infra/scheduler"
	"training_reminder_bot/internal/infra/telegram"
)

func main() {
	cliApp := &cli.App{
		Name:  "training-reminder-bot",
		Usage: "Weekly class schedule lookup and training reminders.",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("could not load application configuration: %w", err)
			}
			logger.Init(cfg)
			c.App.Metadata = map[string]interface{}{"config": cfg}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			nextCommand(),
			branchesCommand(),
			exportICSCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.WithError(err).Fatal("Application failed")
	}
}

func appConfig(c *cli.Context) *config.AppConfig {
	return c.App.Metadata["config"].(*config.AppConfig)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the Telegram bot and the reminder alarm engine.",
		Action: func(c *cli.Context) error {
			cfg := appConfig(c)
			if err := cfg.ValidateForBot(); err != nil {
				return err
			}
			mainLogger := logger.Component("main")
			mainLogger.WithFields(logrus.Fields{
				"environment": cfg.Environment,
				"storage":     cfg.StorageBackend,
				"timezone":    cfg.Timezone,
			}).Info("Training reminder bot starting...")

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
			}
			clock := func() time.Time { return time.Now().In(loc) }

			cat, err := catalog.Load()
			if err != nil {
				return fmt.Errorf("could not load schedule catalog: %w", err)
			}
			mainLogger.WithField("slots", len(cat.Slots())).Info("Schedule catalog loaded")

			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			baseEntry := logrus.NewEntry(logger.Log)
			lookup := app.NewLookupService(cat)
			settings := app.NewSettingsRepository(store, cfg.StoragePrefix, cfg.DefaultLeadMinutes)
			registry := app.NewPreferenceRegistry(store, cfg.StoragePrefix)
			platform := scheduler.NewCronAlarmPlatform(loc, cfg.ExactAlarmsAllowed, logger.Log)

			reminders := app.NewReminderService(lookup, platform, registry, settings,
				reminder.LegacyRange{Start: cfg.LegacyAlarmIDStart, Count: cfg.LegacyAlarmIDCount},
				clock, baseEntry)

			bot, err := telebot.NewBot(telebot.Settings{
				Token:  cfg.TelegramToken,
				Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
				OnError: func(err error, tc telebot.Context) {
					entry := logger.Log.WithError(err)
					if tc != nil && tc.Sender() != nil {
						entry = entry.WithField("sender_id", tc.Sender().ID)
					}
					entry.Error("Telegram handler error")
				},
			})
			if err != nil {
				return fmt.Errorf("could not create Telegram bot: %w", err)
			}

			notifier := telegram.NewTelebotNotifier(bot, cfg.OwnerChatID)
			handler := app.NewAlarmHandler(reminders, lookup, settings, platform, notifier,
				time.Duration(cfg.SnoozeMinutes)*time.Minute, clock, baseEntry)
			platform.SetReceiver(handler)

			telegramLogger := logger.Component("telegram")
			telegram.RegisterBotCommands(ctx, bot, telegram.Deps{
				Lookup:      lookup,
				Reminders:   reminders,
				Settings:    settings,
				OwnerChatID: cfg.OwnerChatID,
				Clock:       clock,
			}, telegramLogger)
			telegram.RegisterSnoozeHandler(ctx, bot, handler, cfg.OwnerChatID, cfg.SnoozeMinutes, telegramLogger)

			if err := platform.AddRearmJob(cfg.CronSpecRearm); err != nil {
				return err
			}
			platform.Start()
			go bot.Start()
			mainLogger.Info("Application setup complete")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			mainLogger.Info("Shutting down application...")
			bot.Stop()
			platform.Stop()
			mainLogger.Info("Application shut down gracefully")
			return nil
		},
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig) (preference.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to database: %w", err)
		}
		store := idb.NewPostgresPreferenceStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	case config.StorageRedis:
		client, err := kvstore.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return kvstore.NewRedisStore(client), func() { client.Close() }, nil
	default:
		logger.Log.Warn("Using in-memory storage: reminder settings will not survive a restart")
		return kvstore.NewMemoryStore(), func() {}, nil
	}
}

var lookupFlags = []cli.Flag{
	&cli.StringFlag{Name: "region", Required: true, Usage: "region id or name"},
	&cli.StringFlag{Name: "branch", Required: true, Usage: "branch name"},
	&cli.StringFlag{Name: "group", Usage: "group text; empty for all groups"},
	&cli.IntFlag{Name: "count", Value: 3, Usage: "number of occurrences"},
}

func upcoming(c *cli.Context) ([]schedule.Occurrence, error) {
	cfg := appConfig(c)
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load schedule catalog: %w", err)
	}
	if !cat.IsRegionActive(c.String("region")) {
		if msg := cat.RegionStatus(c.String("region")); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
	}
	lookup := app.NewLookupService(cat)
	return lookup.UpcomingWithin(c.String("region"), c.String("branch"), c.String("group"), c.Int("count"), time.Now().In(loc), app.StartedGrace), nil
}

func nextCommand() *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Print the upcoming classes of a branch and group.",
		Flags: lookupFlags,
		Action: func(c *cli.Context) error {
			occs, err := upcoming(c)
			if err != nil {
				return err
			}
			if len(occs) == 0 {
				fmt.Println("No upcoming classes.")
				return nil
			}
			for _, o := range occs {
				fmt.Printf("%s-%s\t%s\t%s, %s\t%s\n", o.StartText, o.EndText, o.Group, o.Venue, o.Address, o.Instructor)
			}
			return nil
		},
	}
}

func branchesCommand() *cli.Command {
	return &cli.Command{
		Name:  "branches",
		Usage: "List the visible branches of a region.",
		Flags: []cli.Flag{&cli.StringFlag{Name: "region", Required: true}},
		Action: func(c *cli.Context) error {
			cat, err := catalog.Load()
			if err != nil {
				return fmt.Errorf("could not load schedule catalog: %w", err)
			}
			region := c.String("region")
			if !cat.IsRegionActive(region) {
				fmt.Println(cat.RegionStatus(region))
				return nil
			}
			for _, b := range cat.BranchesFor(region) {
				fmt.Printf("%s\t%s\n", b, cat.ResolveAddress(b))
			}
			return nil
		},
	}
}

func exportICSCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Write the upcoming classes as an iCalendar file.",
		Flags: append(append([]cli.Flag{}, lookupFlags...),
			&cli.StringFlag{Name: "out", Value: "schedule.ics", Usage: "output file"},
		),
		Action: func(c *cli.Context) error {
			occs, err := upcoming(c)
			if err != nil {
				return err
			}
			data := calendar.ExportICS(occs, time.Now().UTC())
			if err := os.WriteFile(c.String("out"), []byte(data), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", c.String("out"), err)
			}
			logger.Log.WithFields(logrus.Fields{"file": c.String("out"), "events": len(occs)}).Info("Calendar exported")
			return nil
		},
	}
}
