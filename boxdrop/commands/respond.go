package commands

import (
	"github.com/disgoorg/disgo/discord"

	"github.com/boxdropbot/boxdrop/boxdrop/config"
)

func errorMessage(text string) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetEmbeds(discord.NewEmbedBuilder().
			SetDescription("❌ " + text).
			SetColor(config.ErrorColor).
			Build()).
		SetEphemeral(true).
		Build()
}

func successMessage(text string) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetEmbeds(discord.NewEmbedBuilder().
			SetDescription("✅ " + text).
			SetColor(config.SuccessColor).
			Build()).
		SetEphemeral(true).
		Build()
}

func infoMessage(text string) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetEmbeds(discord.NewEmbedBuilder().
			SetDescription(text).
			SetColor(config.InfoColor).
			Build()).
		SetEphemeral(true).
		Build()
}
