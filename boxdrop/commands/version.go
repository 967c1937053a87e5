package commands

import (
	"fmt"
	"runtime"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/boxdropbot/boxdrop/boxdrop"
	"github.com/boxdropbot/boxdrop/boxdrop/config"
)

var Version = discord.SlashCommandCreate{
	Name:        "version",
	Description: "Show the bot version",
}

func VersionHandler(b *boxdrop.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		embed := discord.NewEmbedBuilder().
			SetTitle("BoxDrop").
			SetDescription(fmt.Sprintf("Version: `%s`\nCommit: `%s`\nGo: `%s`",
				b.Version, b.Commit, runtime.Version())).
			SetColor(config.InfoColor).
			Build()

		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(embed).
			SetEphemeral(true).
			Build())
	}
}
