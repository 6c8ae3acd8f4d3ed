package review

import (
	"context"
	"slices"

	"github.com/cppla/frypillows/models"
)

// SettingsReader is the read side of the guild settings store.
type SettingsReader interface {
	Get(ctx context.Context, guildID string) (models.GuildSettings, error)
}

// Gate decides whether a member may moderate submissions in a guild.
type Gate struct {
	settings SettingsReader
}

func NewGate(settings SettingsReader) *Gate {
	return &Gate{settings: settings}
}

// Authorize re-reads the guild settings on every call and has no side effects.
func (g *Gate) Authorize(ctx context.Context, guildID string, roles []string) error {
	s, err := g.settings.Get(ctx, guildID)
	if err != nil {
		return newError(ErrStorageFailure, "settings", err)
	}
	modRole, ok := s.ModRoleID()
	if !ok {
		return newError(ErrModerationNotConfigured, "", nil)
	}
	if !slices.Contains(roles, modRole) {
		return newError(ErrForbidden, "", nil)
	}
	return nil
}
