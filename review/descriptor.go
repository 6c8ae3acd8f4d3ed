package review

import (
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/cppla/frypillows/models"
)

// Moderation message embed contract.
const (
	TitleSuffix = "'s Pillow Submission"
	FieldName   = "Name:"
	FieldType   = "Type:"

	colorPending  = 0xFEE75C
	colorApproved = 0x57F287
	colorDenied   = 0xED4245
)

// Descriptor identifies the submission a moderation message is about.
type Descriptor struct {
	Key           string
	SubmitterID   string
	SubmitterName string
	PillowName    string
	PillowType    string
}

// ParseCustomID splits a button id like "approve:42_Large" into its action and
// submission reference. Legacy buttons carry no reference.
func ParseCustomID(customID string) (Action, string) {
	action, ref, _ := strings.Cut(customID, ":")
	return Action(action), ref
}

// CustomID is the inverse of ParseCustomID.
func CustomID(action Action, key string) string {
	return string(action) + ":" + key
}

// ExtractDescriptor recovers the submission identity from the moderation message.
// ref is the key carried by the button; when empty the key is rebuilt from the
// user whose command created the message.
func ExtractDescriptor(msg *discordgo.Message, ref string) (Descriptor, error) {
	if msg == nil || len(msg.Embeds) == 0 || msg.Embeds[0] == nil {
		return Descriptor{}, malformed("embed")
	}
	embed := msg.Embeds[0]
	if len(embed.Fields) == 0 {
		return Descriptor{}, malformed("fields")
	}

	d := Descriptor{
		PillowName: fieldValue(embed.Fields, FieldName),
		PillowType: fieldValue(embed.Fields, FieldType),
	}
	if d.PillowName == "" {
		return Descriptor{}, malformed("name")
	}
	if d.PillowType == "" {
		return Descriptor{}, malformed("type")
	}
	name, ok := strings.CutSuffix(embed.Title, TitleSuffix)
	if !ok || strings.TrimSpace(name) == "" {
		return Descriptor{}, malformed("display name")
	}
	d.SubmitterName = name

	if ref != "" {
		submitterID, pillowType, ok := models.SplitPillowKey(ref)
		if !ok || pillowType != d.PillowType {
			return Descriptor{}, malformed("submission reference")
		}
		d.Key = ref
		d.SubmitterID = submitterID
		return d, nil
	}

	author := interactionAuthor(msg)
	if author == nil || author.ID == "" {
		return Descriptor{}, malformed("submitter")
	}
	d.SubmitterID = author.ID
	d.Key = models.PillowKey(author.ID, d.PillowType)
	return d, nil
}

func fieldValue(fields []*discordgo.MessageEmbedField, name string) string {
	for _, f := range fields {
		if f != nil && f.Name == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

func interactionAuthor(msg *discordgo.Message) *discordgo.User {
	if msg.InteractionMetadata != nil && msg.InteractionMetadata.User != nil {
		return msg.InteractionMetadata.User
	}
	if msg.Interaction != nil && msg.Interaction.User != nil {
		return msg.Interaction.User
	}
	return nil
}

// SubmissionEmbed renders the moderation message for a new submission.
func SubmissionEmbed(d Descriptor, imageURL string, at time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     d.SubmitterName + TitleSuffix,
		Color:     colorPending,
		Timestamp: at.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: FieldName, Value: d.PillowName, Inline: true},
			{Name: FieldType, Value: d.PillowType, Inline: true},
		},
	}
	if imageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: imageURL}
	}
	return embed
}

// SubmissionButtons are the approve/deny controls, each carrying the submission key.
func SubmissionButtons(key string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: CustomID(ActionApprove, key),
					Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
				},
				discordgo.Button{
					Label:    "Deny",
					Style:    discordgo.DangerButton,
					CustomID: CustomID(ActionDeny, key),
					Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
				},
			},
		},
	}
}
