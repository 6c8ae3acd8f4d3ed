package models

// PhotoMeta is the typed view of a photo object's custom metadata.
type PhotoMeta struct {
	DiscordUserID string `json:"discordUserId"`
	SubmittedAt   string `json:"submittedAt"`
	Date          string `json:"date"`
	UserName      string `json:"userName"`
}

// PhotoMetaFrom reads the known keys out of a raw metadata map.
func PhotoMetaFrom(m map[string]string) PhotoMeta {
	return PhotoMeta{
		DiscordUserID: m[MetaDiscordUserID],
		SubmittedAt:   m[MetaSubmittedAt],
		Date:          m[MetaDate],
		UserName:      m[MetaUserName],
	}
}

func (p PhotoMeta) Map() map[string]string {
	return map[string]string{
		MetaDiscordUserID: p.DiscordUserID,
		MetaSubmittedAt:   p.SubmittedAt,
		MetaDate:          p.Date,
		MetaUserName:      p.UserName,
	}
}

// PhotoListItem is one entry of the photo listing.
type PhotoListItem struct {
	Key string `json:"key"`
	PhotoMeta
}
