package tools

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// DiscordMessenger posts to Discord channels by channel ID.
type DiscordMessenger struct {
	session *discordgo.Session
}

func NewDiscordMessenger(token string) (*DiscordMessenger, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &DiscordMessenger{session: session}, nil
}

func (d *DiscordMessenger) Post(ctx context.Context, channel, text string) error {
	_, err := d.session.ChannelMessageSend(channel, text, discordgo.WithContext(ctx))
	return err
}
