package models

// Guild settings keys.
const (
	SettingModRoleID       = "modRoleId"
	SettingPillowChannelID = "pillowChannelId"
	SettingPhotoChannelID  = "photoChannelId"
)

// GuildSettings is the free-form attribute set stored per guild.
type GuildSettings map[string]any

// String returns the value under key when it is a non-empty string.
func (g GuildSettings) String(key string) (string, bool) {
	if g == nil {
		return "", false
	}
	s, ok := g[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ModRoleID returns the configured moderator role. A missing role means moderation is not configured.
func (g GuildSettings) ModRoleID() (string, bool) { return g.String(SettingModRoleID) }

func (g GuildSettings) PillowChannelID() (string, bool) { return g.String(SettingPillowChannelID) }

func (g GuildSettings) PhotoChannelID() (string, bool) { return g.String(SettingPhotoChannelID) }
