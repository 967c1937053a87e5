package drops

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"

	"github.com/boxdropbot/boxdrop/boxdrop/config"
)

const claimButtonPrefix = "/boxclaim/"

func dropPromptMessage(guildID string, window time.Duration) discord.MessageCreate {
	embed := discord.NewEmbedBuilder().
		SetTitle("🎁 A Mystery Box has appeared!").
		SetDescription(fmt.Sprintf("First to press the button claims it. Window closes in **%d seconds**.", int(window.Seconds()))).
		SetColor(config.DropColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		AddActionRow(discord.NewPrimaryButton("🎁 Claim", claimButtonPrefix+guildID)).
		Build()
}

func dropClaimedUpdate(winnerID string) discord.MessageUpdate {
	embed := discord.NewEmbedBuilder().
		SetTitle("🎁 Mystery Box claimed!").
		SetDescription(fmt.Sprintf("<@%s> was the fastest. Check back for the next drop.", winnerID)).
		SetColor(config.SuccessColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()
}

func dropExpiredUpdate() discord.MessageUpdate {
	embed := discord.NewEmbedBuilder().
		SetTitle("🎁 Mystery Box vanished...").
		SetDescription("Nobody claimed it in time. Another one will drop later.").
		SetColor(config.InfoColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()
}

func dropFailedUpdate() discord.MessageUpdate {
	embed := discord.NewEmbedBuilder().
		SetTitle("🎁 Mystery Box jammed").
		SetDescription("Something went wrong while handing out this box. It will be back on the next drop.").
		SetColor(config.ErrorColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()
}

func emptyCatalogMessage() discord.MessageCreate {
	embed := discord.NewEmbedBuilder().
		SetTitle("🎁 Mystery Box skipped").
		SetDescription("A drop was due but the reward list is empty. An admin can add rewards with `/mysterybox add-reward`.").
		SetColor(config.WarningColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageCreateBuilder().SetEmbeds(embed).Build()
}

func winnerDMMessage(reward, claimID, ticketHint string) discord.MessageCreate {
	description := fmt.Sprintf("**You won:** %s\n**Claim ID:** `#%s`", reward, claimID)
	if ticketHint != "" {
		description += "\n\n" + ticketHint
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("🎉 Congratulations!").
		SetDescription(description).
		SetColor(config.SuccessColor).
		SetTimestamp(time.Now()).
		Build()

	return discord.NewMessageCreateBuilder().SetEmbeds(embed).Build()
}

func dmFallbackMessage(winnerID string) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetContentf("<@%s> won the Mystery Box but I couldn't DM you your claim ID. Use `/mysterybox check` to see it.", winnerID).
		Build()
}
