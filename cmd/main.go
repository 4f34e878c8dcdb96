package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/routes"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rdb := config.InitRedis(cfg)

	mailer, err := utils.NewSESMailer(context.Background(), cfg.AWSRegion, cfg.SESFrom)
	if err != nil {
		logger.Error("mailer init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	momo := utils.NewMomoClient(
		cfg.Momo.PartnerCode, cfg.Momo.AccessKey, cfg.Momo.SecretKey,
		cfg.Momo.Endpoint, cfg.Momo.RedirectURL, cfg.Momo.IPNURL,
	)

	hub := services.NewHub(logger)
	deps := routes.Deps{
		Cfg:     cfg,
		Logger:  logger,
		Redis:   rdb,
		Auth:    services.NewAuthService(db, mailer, cfg, logger),
		Foods:   services.NewFoodService(db, logger),
		Reviews: services.NewReviewService(db, logger),
		Orders:  services.NewOrderService(db, hub, momo, logger),
		Hub:     hub,
	}

	r := routes.SetupRouter(deps)
	logger.Info("server listening", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
