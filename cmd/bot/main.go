package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vrcmeet/meetbot/internal/bot"
	"github.com/vrcmeet/meetbot/internal/config"
	"github.com/vrcmeet/meetbot/internal/database"
	"github.com/vrcmeet/meetbot/internal/invitation"
	"github.com/vrcmeet/meetbot/internal/logging"
	"github.com/vrcmeet/meetbot/internal/ops"
	"github.com/vrcmeet/meetbot/internal/scheduler"
	"github.com/vrcmeet/meetbot/internal/staff"
	"github.com/vrcmeet/meetbot/internal/ticket"
)

func main() {
	// Optional in production; the container provides real env vars there.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db,
		&invitation.Invitation{},
		&invitation.Participant{},
		&ticket.Ticket{},
	); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	invRepo := invitation.NewRepository(db)
	invSvc := invitation.NewService(invRepo, logger)

	ticketRepo := ticket.NewRepository(db)
	ticketSvc := ticket.NewService(ticketRepo, cfg.TicketDeletionDelay, logger)
	ticketH := ticket.NewHandler(ticketSvc, cfg, logger)

	// The invitation handler notifies staff on creation, and the staff
	// handler refreshes announcements after provisioning, so the notifier
	// is wired in after both exist.
	invH := invitation.NewHandler(invSvc, cfg, nil, logger)
	staffH := staff.NewHandler(invSvc, cfg, invH, logger)
	invH.SetNotifier(staffH)

	b, err := bot.New(cfg, invH, staffH, ticketH, ticketSvc, logger)
	if err != nil {
		logger.Fatal("failed to build bot", zap.Error(err))
	}

	if err := b.Open(); err != nil {
		logger.Fatal("failed to connect to gateway", zap.Error(err))
	}
	defer b.Close()

	sched, err := scheduler.New(b.Session(), cfg, invSvc, invH, ticketH, logger)
	if err != nil {
		logger.Fatal("failed to build scheduler", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	opsServer := ops.NewServer(cfg, db, invSvc, ticketSvc, logger)
	go func() {
		if err := opsServer.Start(); err != nil {
			logger.Error("ops server stopped", zap.Error(err))
		}
	}()

	logger.Info("bot is running, press ctrl+c to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(ctx); err != nil {
		logger.Error("ops server shutdown failed", zap.Error(err))
	}
}
