package main // main package for the symposium registration server

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/utsavfest/symposium-backend/internal/blob"
	"github.com/utsavfest/symposium-backend/internal/config"
	"github.com/utsavfest/symposium-backend/internal/database"
	"github.com/utsavfest/symposium-backend/internal/handler"
	"github.com/utsavfest/symposium-backend/internal/queue"
	"github.com/utsavfest/symposium-backend/internal/repository"
	"github.com/utsavfest/symposium-backend/internal/router"
	"github.com/utsavfest/symposium-backend/internal/service"
)

func main() {
	// Load variables from a local .env file when present. Real
	// deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting, response caching and the OTP store.
	// A nil client disables all three and the server still runs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting, caching and password reset disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	otps := repository.NewOTPRepo(rdb)
	events := repository.NewEventRepo(db)
	regs := repository.NewRegistrationRepo(db)
	verified := repository.NewVerifiedRepo(db)
	bookings := repository.NewBookingRepo(db)
	inventory := repository.NewInventoryRepo(db)

	proofs, err := blob.New(cfg.ProofDir)
	if err != nil {
		log.Fatalf("proof store: %v", err)
	}

	checkout := service.NewCheckout(db, regs, bookings, inventory)
	verifier := service.NewVerifier(db, users, events, regs, verified, bookings, inventory,
		service.QueueMailPublisher{})

	sender := queue.SMTPSender{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
	}
	go func() {
		if err := queue.StartMailConsumer(sender); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e, router.Deps{
		Cfg:      cfg,
		Redis:    rdb,
		Auth:     handler.NewAuthHandler(users, tokens, otps, cfg, sender),
		Browse:   handler.NewBrowseHandler(events, inventory),
		Checkout: handler.NewCheckoutHandler(checkout, events, inventory, proofs),
		Status:   handler.NewStatusHandler(regs, verified, bookings),
		Admin:    handler.NewAdminHandler(verifier, regs, verified, bookings, proofs),
	})

	log.Fatal(e.Start(":" + cfg.Port))
}
