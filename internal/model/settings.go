package model

// Settings is the flat configuration record applied to every new completion
// request. Single instance per store lifetime; mutated via merge-patch.
type Settings struct {
	Tone          string `json:"tone"`
	WritingStyle  string `json:"writing_style"`
	Language      string `json:"language"`
	OutputFormat  string `json:"output_format"`
	ContextWindow int    `json:"context_window"`
}

// DefaultContextWindow is the number of prior messages sent with a request.
const DefaultContextWindow = 10

// DefaultSettings returns the settings a fresh store starts with.
func DefaultSettings() Settings {
	return Settings{
		Tone:          "default",
		WritingStyle:  "default",
		Language:      "default",
		OutputFormat:  "default",
		ContextWindow: DefaultContextWindow,
	}
}

// SettingsPatch is a merge-patch for Settings. Nil fields are left untouched.
type SettingsPatch struct {
	Tone          *string `json:"tone,omitempty"`
	WritingStyle  *string `json:"writing_style,omitempty"`
	Language      *string `json:"language,omitempty"`
	OutputFormat  *string `json:"output_format,omitempty"`
	ContextWindow *int    `json:"context_window,omitempty"`
}

// Apply merges the patch into s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Tone != nil {
		s.Tone = *p.Tone
	}
	if p.WritingStyle != nil {
		s.WritingStyle = *p.WritingStyle
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.OutputFormat != nil {
		s.OutputFormat = *p.OutputFormat
	}
	if p.ContextWindow != nil && *p.ContextWindow > 0 {
		s.ContextWindow = *p.ContextWindow
	}
	return s
}
