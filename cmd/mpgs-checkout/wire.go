package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/config"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/notify"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/storage"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/webhook"
)

var errNoDatabase = errors.New("database.url is required")

// openLedger connects to the Postgres instance holding the shop's orders.
func openLedger(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (storage.Ledger, func(), error) {
	if cfg.Database.URL == "" {
		return nil, nil, errNoDatabase
	}
	store, err := storage.New(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("storage.New: %w", err)
	}
	return store, store.Close, nil
}

func newNotifier(cfg *config.Config) (webhook.Notifier, error) {
	if cfg.Telegram.Token == "" {
		return nil, nil
	}
	bot, err := telego.NewBot(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telego.NewBot: %w", err)
	}
	return notify.NewTelegram(bot, cfg.Telegram.ChatID), nil
}
