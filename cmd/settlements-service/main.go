package main

import (
	"fmt"
	"os"

	"github.com/rodavia/transport-settlements/internal/auth"
	"github.com/rodavia/transport-settlements/internal/config"
	"github.com/rodavia/transport-settlements/internal/db"
	"github.com/rodavia/transport-settlements/internal/excel"
	httphandler "github.com/rodavia/transport-settlements/internal/http"
	"github.com/rodavia/transport-settlements/internal/http/middleware"
	"github.com/rodavia/transport-settlements/internal/logger"
	"github.com/rodavia/transport-settlements/internal/mail"
	"github.com/rodavia/transport-settlements/internal/pdf"
	"github.com/rodavia/transport-settlements/internal/repository"
	"github.com/rodavia/transport-settlements/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	requestRepo := repository.NewRequestRepository(database)
	expenseRepo := repository.NewExpenseRepository(database)
	vehicleRepo := repository.NewVehicleRepository(database)
	settlementRepo := repository.NewSettlementRepository(database)
	payableRepo := repository.NewPayableRepository(database)

	pdfGenerator, err := pdf.NewGenerator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init pdf generator")
	}
	excelGenerator := excel.NewGenerator()

	sender, err := mail.NewSender(cfg.SMTP)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init smtp sender")
	}
	notifier := service.NewNotifier(sender, pdfGenerator, settlementRepo, log,
		cfg.Settlements.QueueSize, cfg.Settlements.SendRetries)
	notifier.Start()
	defer notifier.Close()

	settlementService := service.NewSettlementService(
		settlementRepo, requestRepo, expenseRepo, vehicleRepo, payableRepo,
		pdfGenerator, excelGenerator, notifier, cfg.Settlements.CompanyName,
	)
	contractService := service.NewContractService(contractRepo)
	expenseService := service.NewExpenseService(expenseRepo)
	payableService := service.NewPayableService(payableRepo)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(settlementService, contractService, expenseService, payableService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting settlements service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
