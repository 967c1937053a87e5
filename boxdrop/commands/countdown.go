package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/boxdropbot/boxdrop/boxdrop"
	"github.com/boxdropbot/boxdrop/boxdrop/config"
	"github.com/boxdropbot/boxdrop/boxdrop/countdown"
	"github.com/boxdropbot/boxdrop/boxdrop/utils"
)

var Countdown = discord.SlashCommandCreate{
	Name:        "countdown",
	Description: "Post a live-updating countdown message",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "title",
			Description: "What the countdown is for",
			Required:    true,
		},
		discord.ApplicationCommandOptionChannel{
			Name:        "channel",
			Description: "Channel to post the countdown in",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "time",
			Description: "How long, e.g. 1h 30m or 2d (at least 1 minute)",
			Required:    true,
		},
	},
}

func CountdownHandler(b *boxdrop.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return e.CreateMessage(errorMessage("This command only works in a server."))
		}

		data := e.SlashCommandInteractionData()
		title := strings.TrimSpace(data.String("title"))
		channel := data.Channel("channel")

		duration, err := utils.ParseDuration(data.String("time"), utils.CountdownUnits, config.MinCountdownDuration)
		if err != nil {
			return e.CreateMessage(errorMessage("I couldn't read that time. Try something like `1h 30m` (at least 1 minute)."))
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		if _, err := b.Countdowns.Create(ctx, guildID.String(), channel.ID, title, duration); err != nil {
			if errors.Is(err, countdown.ErrCountdownActive) {
				return e.CreateMessage(errorMessage(fmt.Sprintf("There's already a countdown running in <#%s>.", channel.ID)))
			}
			return fmt.Errorf("failed to create countdown: %w", err)
		}

		return e.CreateMessage(successMessage(fmt.Sprintf(
			"Countdown **%s** is live in <#%s>, ending in **%s**.", title, channel.ID, utils.FormatDuration(duration))))
	}
}
