package models

import (
	"strings"
	"time"
)

// Metadata keys stored alongside every pillow object, pending or approved.
const (
	MetaDiscordUserID     = "discordUserId"
	MetaDiscordApproverID = "discordApproverId"
	MetaSubmittedAt       = "submittedAt"
	MetaPillowName        = "pillowName"
	MetaPillowType        = "pillowType"
	MetaUserName          = "userName"
	MetaDate              = "date"
)

// DefaultPillowType is reported for objects uploaded without a type.
const DefaultPillowType = "Normal"

// PillowMeta is the typed view of a pillow object's custom metadata.
type PillowMeta struct {
	DiscordUserID     string `json:"discordUserId"`
	DiscordApproverID string `json:"discordApproverId"`
	SubmittedAt       string `json:"submittedAt"`
	PillowName        string `json:"pillowName"`
	PillowType        string `json:"pillowType"`
	UserName          string `json:"userName"`
}

// PillowMetaFrom reads the known keys out of a raw metadata map.
func PillowMetaFrom(m map[string]string) PillowMeta {
	return PillowMeta{
		DiscordUserID:     m[MetaDiscordUserID],
		DiscordApproverID: m[MetaDiscordApproverID],
		SubmittedAt:       m[MetaSubmittedAt],
		PillowName:        m[MetaPillowName],
		PillowType:        m[MetaPillowType],
		UserName:          m[MetaUserName],
	}
}

// Map renders the metadata back to the raw form the blob stores persist.
func (p PillowMeta) Map() map[string]string {
	return map[string]string{
		MetaDiscordUserID:     p.DiscordUserID,
		MetaDiscordApproverID: p.DiscordApproverID,
		MetaSubmittedAt:       p.SubmittedAt,
		MetaPillowName:        p.PillowName,
		MetaPillowType:        p.PillowType,
		MetaUserName:          p.UserName,
	}
}

// PillowListItem is one entry of the public pillow listing.
type PillowListItem struct {
	Key string `json:"key"`
	PillowMeta
}

// PillowKey builds the storage key shared by the pending and approved buckets.
// Neither component is escaped; see ValidPillowType.
func PillowKey(submitterID, pillowType string) string {
	return submitterID + "_" + pillowType
}

// SplitPillowKey reverses PillowKey. Discord ids never contain underscores, so the
// first underscore separates the submitter from the type.
func SplitPillowKey(key string) (submitterID, pillowType string, ok bool) {
	submitterID, pillowType, ok = strings.Cut(key, "_")
	if !ok || submitterID == "" || pillowType == "" {
		return "", "", false
	}
	return submitterID, pillowType, true
}

// ValidPillowType reports whether t can be embedded in a storage key unambiguously.
func ValidPillowType(t string) bool {
	t = strings.TrimSpace(t)
	return t != "" && !strings.ContainsAny(t, "_/:")
}

// FormatTimestamp renders t the way submittedAt is stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
