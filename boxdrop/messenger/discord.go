package messenger

import (
	"context"
	"errors"
	"net/http"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// DiscordMessenger sends through the bot client's REST layer.
type DiscordMessenger struct {
	client bot.Client
}

func NewDiscord(client bot.Client) *DiscordMessenger {
	return &DiscordMessenger{client: client}
}

func (m *DiscordMessenger) SendMessage(ctx context.Context, channelID snowflake.ID, message discord.MessageCreate) (*discord.Message, error) {
	msg, err := m.client.Rest().CreateMessage(channelID, message, rest.WithCtx(ctx))
	if err != nil {
		return nil, wrapChannelErr(err)
	}
	return msg, nil
}

func (m *DiscordMessenger) EditMessage(ctx context.Context, channelID, messageID snowflake.ID, update discord.MessageUpdate) (*discord.Message, error) {
	msg, err := m.client.Rest().UpdateMessage(channelID, messageID, update, rest.WithCtx(ctx))
	if err != nil {
		return nil, wrapChannelErr(err)
	}
	return msg, nil
}

func (m *DiscordMessenger) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	if err := m.client.Rest().DeleteMessage(channelID, messageID, rest.WithCtx(ctx)); err != nil {
		return wrapChannelErr(err)
	}
	return nil
}

func (m *DiscordMessenger) SendDirectMessage(ctx context.Context, userID snowflake.ID, message discord.MessageCreate) error {
	channel, err := m.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return err
	}
	if _, err = m.client.Rest().CreateMessage(channel.ID(), message, rest.WithCtx(ctx)); err != nil {
		return err
	}
	return nil
}

// wrapChannelErr translates a 404 from the message endpoints into
// ErrChannelUnavailable so callers can react without inspecting REST
// internals.
func wrapChannelErr(err error) error {
	var restErr rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return errors.Join(ErrChannelUnavailable, err)
	}
	return err
}
