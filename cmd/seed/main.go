package main

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/shinyyama/support-chat/internal/config"
	"github.com/shinyyama/support-chat/internal/db"
	"github.com/shinyyama/support-chat/internal/logging"
	"github.com/shinyyama/support-chat/internal/model"
	"github.com/shinyyama/support-chat/internal/repository"
	"github.com/shinyyama/support-chat/internal/service"
)

type seedConfig struct {
	CustomerID   string `env:"SEED_CUSTOMER_ID" envDefault:"demo-customer"`
	CustomerName string `env:"SEED_CUSTOMER_NAME" envDefault:"Demo Customer"`
	AdminID      string `env:"SEED_ADMIN_ID" envDefault:"demo-admin"`
}

type line struct {
	sender model.SenderType
	text   string
}

var script = []line{
	{model.SenderCustomer, "Hi, I can't log in to my account since this morning."},
	{model.SenderAdmin, "Sorry to hear that. Are you seeing an error message?"},
	{model.SenderCustomer, "It says my password is invalid, but I haven't changed it."},
}

func main() {
	log := logging.New("info", true)
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Msg("seed complete")
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var sc seedConfig
	if err := env.Parse(&sc); err != nil {
		return fmt.Errorf("parse seed env: %w", err)
	}
	log := logging.New(cfg.LogLevel, true)

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	chat := service.NewChatService(repository.NewConversationRepository(gdb), log)
	cv, err := chat.OpenConversation(ctx, sc.CustomerID, sc.CustomerName)
	if err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}
	existing, err := chat.ListMessages(ctx, cv.ID, sc.CustomerID, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info().Str("conversation_id", cv.ID).Msg("demo conversation already has messages; skipping")
		return nil
	}
	for _, l := range script {
		uid := sc.CustomerID
		if l.sender == model.SenderAdmin {
			uid = sc.AdminID
		}
		if _, _, err := chat.SendMessage(ctx, cv.ID, uid, l.sender, l.text); err != nil {
			return fmt.Errorf("send %q: %w", l.text, err)
		}
	}
	log.Info().Str("conversation_id", cv.ID).Int("messages", len(script)).Msg("demo conversation seeded")
	return nil
}
