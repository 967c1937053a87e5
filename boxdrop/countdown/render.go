package countdown

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"

	"github.com/boxdropbot/boxdrop/boxdrop/config"
	"github.com/boxdropbot/boxdrop/boxdrop/utils"
)

func runningMessage(title string, remaining time.Duration) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetEmbeds(runningEmbed(title, remaining)).
		Build()
}

func runningUpdate(title string, remaining time.Duration) discord.MessageUpdate {
	return discord.NewMessageUpdateBuilder().
		SetEmbeds(runningEmbed(title, remaining)).
		Build()
}

func runningEmbed(title string, remaining time.Duration) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("⏳ %s", title)).
		SetDescription(fmt.Sprintf("Time remaining: **%s**", utils.FormatDuration(remaining))).
		SetColor(config.InfoColor).
		Build()
}

func finishedUpdate(title string) discord.MessageUpdate {
	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("⌛ %s", title)).
		SetDescription("The countdown has ended!").
		SetColor(config.SuccessColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build()
}
