package notify

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/models"
)

// Sender is the part of *telego.Bot the notifier uses.
type Sender interface {
	SendMessage(params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram posts payment outcomes to a merchant chat.
type Telegram struct {
	sender Sender
	chatID int64
}

func NewTelegram(sender Sender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chatID: chatID}
}

func (t *Telegram) PaymentSucceeded(_ context.Context, order models.Order, transactionID string) error {
	return t.send(fmt.Sprintf(`Payment received
Order: %s
Amount: %s %s
Transaction: %s`, order.String(), order.FormattedAmount(), order.Currency, transactionID))
}

func (t *Telegram) PaymentFailed(_ context.Context, order models.Order, reason string) error {
	return t.send(fmt.Sprintf(`Payment failed
Order: %s
Amount: %s %s
Reason: %s`, order.String(), order.FormattedAmount(), order.Currency, reason))
}

func (t *Telegram) send(text string) error {
	_, err := t.sender.SendMessage(&telego.SendMessageParams{
		ChatID: telego.ChatID{ID: t.chatID},
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("sender.SendMessage: %w", err)
	}
	return nil
}
