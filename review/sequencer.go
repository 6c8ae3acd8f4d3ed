package review

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Platform is the chat platform surface the review workflow responds through.
type Platform interface {
	// UpdateMessage is the initial interaction callback replacing the moderation message.
	UpdateMessage(ctx context.Context, i *discordgo.Interaction, data *discordgo.InteractionResponseData) error
	// Followup posts a message after the callback has been acknowledged.
	Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) error
}

// SessionPlatform implements Platform on a discordgo REST session.
type SessionPlatform struct {
	s *discordgo.Session
}

func NewSessionPlatform(s *discordgo.Session) *SessionPlatform {
	return &SessionPlatform{s: s}
}

func (p *SessionPlatform) UpdateMessage(ctx context.Context, i *discordgo.Interaction, data *discordgo.InteractionResponseData) error {
	return p.s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	}, discordgo.WithContext(ctx))
}

func (p *SessionPlatform) Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) error {
	_, err := p.s.FollowupMessageCreate(i, false, params, discordgo.WithContext(ctx))
	return err
}

// Delivery reports which of the two responses reached the platform.
type Delivery struct {
	Updated     bool
	AuditPosted bool
}

// Sequencer issues the message update and then the audit follow-up, in that order.
type Sequencer struct {
	platform Platform
	log      *zap.Logger
}

func NewSequencer(platform Platform, log *zap.Logger) *Sequencer {
	return &Sequencer{platform: platform, log: log}
}

// Deliver fails only when the message update is rejected. A failed follow-up is logged.
func (s *Sequencer) Deliver(ctx context.Context, i *discordgo.Interaction, out *Outcome) (Delivery, error) {
	var d Delivery
	err := s.platform.UpdateMessage(ctx, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{out.Embed},
		Components: []discordgo.MessageComponent{},
	})
	if err != nil {
		s.log.Error("interaction update rejected", append(restFields(err), zap.String("key", out.Key))...)
		return d, newError(ErrUpstreamUpdateFailed, "", err)
	}
	d.Updated = true

	err = s.platform.Followup(ctx, i, &discordgo.WebhookParams{
		Content:         out.AuditContent,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		s.log.Warn("audit follow-up failed",
			append(restFields(newError(ErrAuditPostFailed, "", err)), zap.String("key", out.Key))...)
		return d, nil
	}
	d.AuditPosted = true
	return d, nil
}

func restFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		fields = append(fields,
			zap.Int("status", rest.Response.StatusCode),
			zap.ByteString("body", rest.ResponseBody))
	}
	return fields
}
