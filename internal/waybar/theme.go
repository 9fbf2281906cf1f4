package waybar

// Theme holds the CSS class names applied to records.
type Theme struct {
	Normal   string `mapstructure:"normal" toml:"normal"`
	Warning  string `mapstructure:"warning" toml:"warning"`
	Critical string `mapstructure:"critical" toml:"critical"`
	Good     string `mapstructure:"good" toml:"good"`
	Unknown  string `mapstructure:"unknown" toml:"unknown"`
}

func DefaultTheme() Theme {
	return Theme{
		Normal:   "normal",
		Warning:  "warning",
		Critical: "critical",
		Good:     "good",
		Unknown:  "unknown",
	}
}

// ClassFor returns critical when value >= critical, warning when
// value >= warning, and normal otherwise.
func (t Theme) ClassFor(value, warning, critical float64) string {
	switch {
	case value >= critical:
		return t.Critical
	case value >= warning:
		return t.Warning
	default:
		return t.Normal
	}
}

// Themed builds a record whose class follows the thresholds.
func (t Theme) Themed(text, tooltip string, percentage *int, value, warning, critical float64) Output {
	return Output{
		Text:       text,
		Tooltip:    tooltip,
		Class:      t.ClassFor(value, warning, critical),
		Percentage: percentage,
	}
}
