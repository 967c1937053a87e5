package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/boxdropbot/boxdrop/boxdrop"
	"github.com/boxdropbot/boxdrop/boxdrop/config"
	"github.com/boxdropbot/boxdrop/boxdrop/database/repositories"
	"github.com/boxdropbot/boxdrop/boxdrop/drops"
	"github.com/boxdropbot/boxdrop/boxdrop/utils"
)

var MysteryBox = discord.SlashCommandCreate{
	Name:        "mysterybox",
	Description: "Manage recurring mystery box drops",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setup",
			Description: "Configure the drop channel and interval (clears the reward list)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        "channel",
					Description: "Channel where boxes will drop",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "interval",
					Description: "Time between drops, e.g. 2h or 1d 12h",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "add-reward",
			Description: "Add a reward to the box",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "reward",
					Description: "Description of the reward",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Start the recurring drops",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "time",
			Description: "Show how long until the next drop",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "rewards",
			Description: "List the configured rewards",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "check",
			Description: "Show claimed boxes for a user",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "User to check (defaults to you)",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "use",
			Description: "Mark a claim as redeemed",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Owner of the claim",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "claim_id",
					Description: "Claim ID, with or without the leading #",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "reset",
			Description: "Stop drops and wipe the schedule, rewards, and claims",
		},
	},
}

func MysteryBoxHandler(b *boxdrop.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return e.CreateMessage(errorMessage("This command only works in a server."))
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "setup":
			return handleSetup(ctx, b, e, guildID.String())
		case "add-reward":
			return handleAddReward(ctx, b, e, guildID.String())
		case "start":
			return handleStart(ctx, b, e, guildID.String())
		case "time":
			return handleTime(ctx, b, e, guildID.String())
		case "rewards":
			return handleRewards(ctx, b, e, guildID.String())
		case "check":
			return handleCheck(ctx, b, e, guildID.String())
		case "use":
			return handleUse(ctx, b, e, guildID.String())
		case "reset":
			return handleReset(ctx, b, e, guildID.String())
		default:
			return e.CreateMessage(errorMessage("Unknown subcommand."))
		}
	}
}

func handleSetup(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	data := e.SlashCommandInteractionData()
	channel := data.Channel("channel")

	interval, err := utils.ParseDuration(data.String("interval"), utils.DropUnits, config.MinDropInterval)
	if err != nil {
		return e.CreateMessage(errorMessage("I couldn't read that interval. Try something like `2h` or `1d 12h`."))
	}

	if err := b.DropScheduler.Configure(ctx, guildID, channel.ID, interval); err != nil {
		return fmt.Errorf("failed to configure drops: %w", err)
	}

	return e.CreateMessage(successMessage(fmt.Sprintf(
		"Boxes will drop in <#%s> every **%s**. The reward list was cleared; add rewards with `/mysterybox add-reward`, then run `/mysterybox start`.",
		channel.ID, utils.FormatDuration(interval))))
}

func handleAddReward(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	reward := strings.TrimSpace(e.SlashCommandInteractionData().String("reward"))
	if reward == "" {
		return e.CreateMessage(errorMessage("The reward description can't be empty."))
	}

	if err := b.DropScheduler.AddReward(ctx, guildID, reward); err != nil {
		if errors.Is(err, drops.ErrNotConfigured) {
			return e.CreateMessage(errorMessage("Run `/mysterybox setup` first."))
		}
		return fmt.Errorf("failed to add reward: %w", err)
	}

	return e.CreateMessage(successMessage(fmt.Sprintf("Added reward: **%s**", reward)))
}

func handleStart(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	next, err := b.DropScheduler.Start(ctx, guildID)
	if err != nil {
		switch {
		case errors.Is(err, drops.ErrNotConfigured):
			return e.CreateMessage(errorMessage("Run `/mysterybox setup` first."))
		case errors.Is(err, drops.ErrNoRewards):
			return e.CreateMessage(errorMessage("Add at least one reward with `/mysterybox add-reward` before starting."))
		default:
			return fmt.Errorf("failed to start drops: %w", err)
		}
	}

	return e.CreateMessage(successMessage(fmt.Sprintf("Mystery box drops started! First drop <t:%d:R>.", next.Unix())))
}

func handleTime(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	remaining, err := b.DropScheduler.TimeUntilNext(ctx, guildID)
	if err != nil {
		switch {
		case errors.Is(err, drops.ErrNotConfigured):
			return e.CreateMessage(errorMessage("No mystery box is set up. Run `/mysterybox setup`."))
		case errors.Is(err, drops.ErrNotStarted):
			return e.CreateMessage(infoMessage("The schedule is configured but not started. Run `/mysterybox start`."))
		default:
			return fmt.Errorf("failed to read schedule: %w", err)
		}
	}

	return e.CreateMessage(infoMessage(fmt.Sprintf("⏳ Next drop in **%s**.", utils.FormatDuration(remaining))))
}

func handleRewards(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	rewards, err := b.DropScheduler.Rewards(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load rewards: %w", err)
	}
	if len(rewards) == 0 {
		return e.CreateMessage(infoMessage("No rewards configured yet. Add some with `/mysterybox add-reward`."))
	}

	totalPages := int(math.Ceil(float64(len(rewards)) / float64(config.RewardsPerPage)))

	return b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			startIdx := page * config.RewardsPerPage
			endIdx := min(startIdx+config.RewardsPerPage, len(rewards))

			var description strings.Builder
			for i, reward := range rewards[startIdx:endIdx] {
				description.WriteString(fmt.Sprintf("`%d.` %s\n", startIdx+i+1, reward.Description))
			}

			embed.
				SetTitle("🎁 Mystery Box Rewards").
				SetDescription(description.String()).
				SetColor(config.DropColor).
				SetFooter(fmt.Sprintf("Page %d/%d • %d rewards", page+1, totalPages, len(rewards)), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}

func handleCheck(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	target := e.User()
	if user, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
		target = user
	}

	claims, err := b.ClaimRepository.GetUserClaims(ctx, guildID, target.ID.String())
	if err != nil {
		return fmt.Errorf("failed to load claims: %w", err)
	}
	if len(claims) == 0 {
		return e.CreateMessage(infoMessage(fmt.Sprintf("%s hasn't claimed any boxes yet.", target.EffectiveName())))
	}

	totalPages := int(math.Ceil(float64(len(claims)) / float64(config.ClaimsPerPage)))

	return b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			startIdx := page * config.ClaimsPerPage
			endIdx := min(startIdx+config.ClaimsPerPage, len(claims))

			var description strings.Builder
			for _, claim := range claims[startIdx:endIdx] {
				status := "🎟️ unused"
				if claim.IsUsed {
					status = "✅ used"
				}
				description.WriteString(fmt.Sprintf("`#%s` — %s — %s — <t:%d:d>\n",
					claim.ClaimID, claim.RewardDescription, status, claim.ClaimedAt.Unix()))
			}

			embed.
				SetTitle(fmt.Sprintf("🎁 Claims for %s", target.EffectiveName())).
				SetDescription(description.String()).
				SetColor(config.InfoColor).
				SetFooter(fmt.Sprintf("Page %d/%d • %d claims", page+1, totalPages, len(claims)), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}

func handleUse(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	data := e.SlashCommandInteractionData()
	user := data.User("user")
	claimID := normalizeClaimID(data.String("claim_id"))

	claim, err := b.ClaimRepository.MarkUsed(ctx, guildID, user.ID.String(), claimID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrClaimNotFound):
			return e.CreateMessage(errorMessage(fmt.Sprintf("No claim `#%s` found for %s.", claimID, user.EffectiveName())))
		case errors.Is(err, repositories.ErrClaimAlreadyUsed):
			return e.CreateMessage(errorMessage(fmt.Sprintf("Claim `#%s` was already redeemed.", claimID)))
		default:
			return fmt.Errorf("failed to redeem claim: %w", err)
		}
	}

	return e.CreateMessage(successMessage(fmt.Sprintf(
		"Redeemed claim `#%s` for %s: **%s**", claim.ClaimID, user.EffectiveName(), claim.RewardDescription)))
}

func handleReset(ctx context.Context, b *boxdrop.Bot, e *handler.CommandEvent, guildID string) error {
	if err := b.DropScheduler.Reset(ctx, guildID); err != nil {
		return fmt.Errorf("failed to reset drops: %w", err)
	}
	return e.CreateMessage(successMessage("Mystery box schedule, rewards, and claims were wiped."))
}

// normalizeClaimID strips the leading # people copy from the claim list
// and upcases the token, since issued tokens are uppercase.
func normalizeClaimID(s string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}

// ClaimButtonHandler resolves presses on a drop prompt's claim button. The
// race itself is decided inside the claim window; this handler only
// translates the result into an ephemeral reply for the presser.
func ClaimButtonHandler(b *boxdrop.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		guildID := strings.TrimPrefix(e.Data.CustomID(), "/boxclaim/")

		if err := e.DeferCreateMessage(true); err != nil {
			return fmt.Errorf("failed to defer response: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		claim, dmFailed, err := b.DropScheduler.ClaimDrop(ctx, guildID, e.User().ID.String())
		if err != nil {
			var content string
			switch {
			case errors.Is(err, drops.ErrAlreadyClaimed), errors.Is(err, drops.ErrNoActiveDrop):
				content = "😔 Too slow! Someone beat you to it, or the box vanished."
			default:
				content = "❌ Something went wrong handing out this box. Try the next drop."
			}
			_, followupErr := e.CreateFollowupMessage(discord.NewMessageCreateBuilder().
				SetContent(content).
				SetEphemeral(true).
				Build())
			return followupErr
		}

		content := "🎉 You got it! Check your DMs for your claim ID."
		if dmFailed {
			content = fmt.Sprintf("🎉 You got it! I couldn't DM you, so here it is: `#%s`", claim.ClaimID)
		}
		_, err = e.CreateFollowupMessage(discord.NewMessageCreateBuilder().
			SetContent(content).
			SetEphemeral(true).
			Build())
		return err
	}
}
