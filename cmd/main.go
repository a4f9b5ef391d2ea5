package main

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reportdesk/internal/api"
	"github.com/reportdesk/internal/config"
	"github.com/reportdesk/internal/database"
	"github.com/reportdesk/internal/logger"
	"github.com/reportdesk/internal/mailer"
	"github.com/reportdesk/internal/notify"
	"github.com/reportdesk/internal/report"
	"github.com/reportdesk/internal/scheduler"
	"github.com/reportdesk/internal/upstream"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Environment)

	if err := database.Initialize(cfg.Database.Path); err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	db := database.GetDB()
	if err := database.SeedDefaults(db, cfg.Report.MaxRangeDays); err != nil {
		logrus.Warnf("Failed to seed defaults: %v", err)
	}

	mail := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)

	var notifier report.Notifier
	if cfg.Slack.Token != "" && cfg.Slack.Channel != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel)
	}

	client := upstream.NewClient(db,
		time.Duration(cfg.Report.APITimeoutSecs)*time.Second,
		cfg.Report.ResponseTruncate)
	dispatcher := report.NewDispatcher(db, mail, notifier)
	processor := report.NewProcessor(db, client, dispatcher, cfg.Report.OutputDir)

	engine := scheduler.NewEngine(db, processor)
	if err := engine.LoadAll(); err != nil {
		logrus.Fatalf("Failed to load schedules: %v", err)
	}
	engine.Start()
	defer engine.Stop()

	server := api.NewServer(db, engine, processor, cfg)
	if err := server.Start(cfg.Server.Port); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
