package domain

// NamingTemplates are the display-name patterns users can cycle through.
var NamingTemplates = []string{
	"{title}",
	"{title} - {uploader}",
	"{playlist} - {title}",
}

// Name modes: auto applies the template silently, ask prompts for a name.
const (
	NameModeAuto = "auto"
	NameModeAsk  = "ask"
)

// UserSettings are the per-user delivery preferences.
type UserSettings struct {
	UserID              int64  `json:"user_id"`
	NamingTemplateIndex int    `json:"naming_template_index"`
	VideoAsDocument     bool   `json:"video_as_document"`
	NameMode            string `json:"name_mode"`
}

// DefaultSettings returns the settings a user has before any change.
func DefaultSettings(userID int64) UserSettings {
	return UserSettings{UserID: userID, NameMode: NameModeAuto}
}

// NamingTemplate resolves the active template, wrapping out-of-range indexes.
func (s UserSettings) NamingTemplate() string {
	return NamingTemplates[s.NamingTemplateIndex%len(NamingTemplates)]
}
