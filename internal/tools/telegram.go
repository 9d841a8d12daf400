package tools

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramMessenger delivers messages to Telegram chats. The channel is the
// numeric chat ID as text.
type TelegramMessenger struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramMessenger(token string) (*TelegramMessenger, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramMessenger{bot: bot}, nil
}

func (t *TelegramMessenger) Post(ctx context.Context, channel, text string) error {
	id := 0
	fmt.Sscanf(channel, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", channel)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = "Markdown"
	_, err := t.bot.Send(msg)
	return err
}
