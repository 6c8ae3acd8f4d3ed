package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/cppla/frypillows/models"
	"github.com/cppla/frypillows/review"
	"github.com/cppla/frypillows/settings"
	"github.com/cppla/frypillows/storage"
	"github.com/cppla/frypillows/utils"
)

var (
	manageGuild = int64(discordgo.PermissionManageServer)
	guildOnly   = false
	errTooLarge = errors.New("attachment too large")
)

// CommandDefinitions are registered with Discord at boot.
func CommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check the bot's response time",
		},
		{
			Name:                     "config",
			Description:              "Configure pillow moderation for this server",
			DefaultMemberPermissions: &manageGuild,
			DMPermission:             &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "mod",
					Description: "Show or set the moderator role",
					Options: []*discordgo.ApplicationCommandOption{{
						Type:        discordgo.ApplicationCommandOptionRole,
						Name:        "role",
						Description: "Role allowed to approve and deny submissions",
					}},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "channel",
					Description: "Show or set submission channels",
					Options: []*discordgo.ApplicationCommandOption{
						channelSubCommand("pillow", "Channel pillow submissions are restricted to"),
						channelSubCommand("photo", "Channel photo submissions are restricted to"),
					},
				},
			},
		},
		{
			Name:         "pillow",
			Description:  "Pillow submissions",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "submit",
				Description: "Submit a pillow for review",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Pillow name", Required: true, MaxLength: 100},
					{Type: discordgo.ApplicationCommandOptionString, Name: "type", Description: "Pillow type", Required: true, MaxLength: 32},
					{Type: discordgo.ApplicationCommandOptionAttachment, Name: "image", Description: "Pillow image", Required: true},
				},
			}},
		},
	}
}

func channelSubCommand(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options: []*discordgo.ApplicationCommandOption{{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Text channel",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		}},
	}
}

// Commands answers slash commands synchronously in the webhook response.
type Commands struct {
	settings settings.Store
	pending  storage.Store
	client   *http.Client
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

func NewCommands(settings settings.Store, pending storage.Store, client *http.Client, maxBytes int64, log *zap.Logger) *Commands {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Commands{
		settings: settings,
		pending:  pending,
		client:   client,
		maxBytes: maxBytes,
		log:      log,
		now:      time.Now,
	}
}

func (c *Commands) Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "ping":
		return c.ping(i)
	case "config":
		return c.config(ctx, i, data)
	case "pillow":
		return c.pillow(ctx, i, data)
	default:
		return ephemeralResponse("This command is not implemented yet")
	}
}

func (c *Commands) ping(i *discordgo.Interaction) *discordgo.InteractionResponse {
	sent, err := discordgo.SnowflakeTimestamp(i.ID)
	if err != nil {
		return messageResponse("🏓 Pong!")
	}
	return messageResponse(fmt.Sprintf("🏓 Pong! (Response time: %dms)", c.now().Sub(sent).Milliseconds()))
}

func (c *Commands) config(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	if i.GuildID == "" {
		return ephemeralResponse("This command can only be used in a server")
	}
	if len(data.Options) == 0 {
		return ephemeralResponse("Missing subcommand")
	}
	sub := data.Options[0]
	switch sub.Name {
	case "mod":
		return c.configValue(ctx, i.GuildID, models.SettingModRoleID, "mod role", sub.Options, roleMention)
	case "channel":
		if len(sub.Options) == 0 {
			return ephemeralResponse("Missing channel kind")
		}
		leaf := sub.Options[0]
		switch leaf.Name {
		case "pillow":
			return c.configValue(ctx, i.GuildID, models.SettingPillowChannelID, "pillow channel", leaf.Options, channelMention)
		case "photo":
			return c.configValue(ctx, i.GuildID, models.SettingPhotoChannelID, "photo channel", leaf.Options, channelMention)
		}
	}
	return ephemeralResponse("This command is not implemented yet")
}

// configValue shows the setting when opts is empty, otherwise merges the new value.
func (c *Commands) configValue(ctx context.Context, guildID, key, label string, opts []*discordgo.ApplicationCommandInteractionDataOption, mention func(string) string) *discordgo.InteractionResponse {
	if len(opts) == 0 {
		current, err := c.settings.Get(ctx, guildID)
		if err != nil {
			c.log.Error("settings read", zap.String("guild", guildID), zap.Error(err))
			return ephemeralResponse("Failed to read settings")
		}
		v, ok := current.String(key)
		if !ok {
			return ephemeralResponse(fmt.Sprintf("No %s set", label))
		}
		return ephemeralResponse(fmt.Sprintf("The %s is %s", label, mention(v)))
	}

	id, _ := opts[0].Value.(string)
	if id == "" {
		return ephemeralResponse(fmt.Sprintf("Invalid %s", label))
	}
	if _, err := c.settings.Merge(ctx, guildID, models.GuildSettings{key: id}); err != nil {
		c.log.Error("settings merge", zap.String("guild", guildID), zap.String("key", key), zap.Error(err))
		return ephemeralResponse("Failed to save settings")
	}
	return ephemeralResponse(fmt.Sprintf("Set the %s to %s", label, mention(id)))
}

func (c *Commands) pillow(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionResponse {
	if len(data.Options) == 0 || data.Options[0].Name != "submit" {
		return ephemeralResponse("This command is not implemented yet")
	}
	user := interactionUser(i)
	if i.GuildID == "" || user == nil {
		return ephemeralResponse("This command can only be used in a server")
	}

	guild, err := c.settings.Get(ctx, i.GuildID)
	if err != nil {
		c.log.Error("settings read", zap.String("guild", i.GuildID), zap.Error(err))
		return ephemeralResponse("Failed to read settings")
	}
	if ch, ok := guild.PillowChannelID(); ok && ch != i.ChannelID {
		return ephemeralResponse(fmt.Sprintf("Pillow submissions go in %s", channelMention(ch)))
	}

	opts := optionMap(data.Options[0].Options)
	name := utils.SanitizeName(optionString(opts, "name"))
	pillowType := strings.TrimSpace(optionString(opts, "type"))
	if pillowType == "" {
		pillowType = models.DefaultPillowType
	}
	if name == "" {
		return ephemeralResponse("Please provide a pillow name")
	}
	if !models.ValidPillowType(pillowType) {
		return ephemeralResponse("Pillow types cannot contain '_', '/' or ':'")
	}

	var att *discordgo.MessageAttachment
	if data.Resolved != nil {
		att = data.Resolved.Attachments[optionString(opts, "image")]
	}
	if att == nil {
		return ephemeralResponse("Please attach an image")
	}
	if !strings.HasPrefix(att.ContentType, "image/") {
		return ephemeralResponse("The attachment must be an image")
	}
	if int64(att.Size) > c.maxBytes {
		return ephemeralResponse(fmt.Sprintf("The image must be at most %dMiB", c.maxBytes>>20))
	}

	body, err := c.download(ctx, att.URL)
	if errors.Is(err, errTooLarge) {
		return ephemeralResponse(fmt.Sprintf("The image must be at most %dMiB", c.maxBytes>>20))
	}
	if err != nil {
		c.log.Warn("attachment download", zap.String("url", att.URL), zap.Error(err))
		return ephemeralResponse("Failed to download the image")
	}

	now := c.now()
	key := models.PillowKey(user.ID, pillowType)
	meta := models.PillowMeta{
		DiscordUserID: user.ID,
		SubmittedAt:   models.FormatTimestamp(now),
		PillowName:    name,
		PillowType:    pillowType,
		UserName:      utils.SanitizeName(user.Username),
	}
	err = c.pending.Put(ctx, key, bytes.NewReader(body), storage.PutOptions{
		ContentType: att.ContentType,
		Metadata:    meta.Map(),
	})
	if err != nil {
		c.log.Error("pending write", zap.String("key", key), zap.Error(err))
		return ephemeralResponse("Failed to store the submission")
	}
	c.log.Info("pillow submitted", zap.String("key", key), zap.String("guild", i.GuildID), zap.Int("bytes", len(body)))

	desc := review.Descriptor{
		Key:           key,
		SubmitterID:   user.ID,
		SubmitterName: displayName(user),
		PillowName:    name,
		PillowType:    pillowType,
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{review.SubmissionEmbed(desc, att.URL, now)},
			Components: review.SubmissionButtons(key),
		},
	}
}

func (c *Commands) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBytes {
		return nil, errTooLarge
	}
	return body, nil
}

func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return utils.SanitizeName(u.GlobalName)
	}
	return utils.SanitizeName(u.Username)
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func optionString(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o, ok := opts[name]
	if !ok {
		return ""
	}
	s, _ := o.Value.(string)
	return s
}

func roleMention(id string) string    { return "<@&" + id + ">" }
func channelMention(id string) string { return "<#" + id + ">" }

func messageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
}

func ephemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
