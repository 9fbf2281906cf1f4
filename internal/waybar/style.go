package waybar

import (
	"fmt"
	"math"
	"strings"

	"codeberg.org/mutker/waysensor/internal/errors"
)

// DefaultGPUIcon is the Nerd Font graphics card glyph.
const DefaultGPUIcon = "\U000F08AE"

type IconStyle string

const (
	IconNerdFont IconStyle = "nerdfont"
	IconNone     IconStyle = "none"
)

func ParseIconStyle(s string) (IconStyle, error) {
	switch strings.ToLower(s) {
	case "nerdfont", "nerd", "nf":
		return IconNerdFont, nil
	case "none", "no", "":
		return IconNone, nil
	default:
		return "", errors.New().WithData(errors.ErrInvalidConfig,
			fmt.Sprintf("invalid icon style %q, valid options: nerdfont, none", s))
	}
}

type IconPosition string

const (
	IconBefore IconPosition = "before"
	IconAfter  IconPosition = "after"
)

// Style controls icon placement and Pango colours. Empty colours leave
// the text unstyled.
type Style struct {
	IconStyle    IconStyle
	Icon         string
	IconPosition IconPosition
	IconSpacing  int

	IconColor         string
	TextColor         string
	TooltipLabelColor string
	TooltipValueColor string

	Theme Theme
}

func DefaultStyle() Style {
	return Style{
		IconStyle:    IconNone,
		Icon:         DefaultGPUIcon,
		IconPosition: IconBefore,
		IconSpacing:  1,
		Theme:        DefaultTheme(),
	}
}

func span(color, s string) string {
	if color == "" {
		return s
	}

	return fmt.Sprintf("<span color=\"%s\">%s</span>", color, s)
}

// WithIcon combines text with the configured icon and colours.
func (s Style) WithIcon(text string) string {
	textPart := span(s.TextColor, text)
	if s.IconStyle == IconNone || strings.TrimSpace(s.Icon) == "" {
		return textPart
	}

	iconPart := span(s.IconColor, s.Icon)
	spacer := strings.Repeat(" ", max(s.IconSpacing, 0))

	if s.IconPosition == IconAfter {
		return textPart + spacer + iconPart
	}

	return iconPart + spacer + textPart
}

// KeyValue formats a tooltip line as "key: value".
func (s Style) KeyValue(key, value string) string {
	return span(s.TooltipLabelColor, key+":") + " " + span(s.TooltipValueColor, value)
}

// Gauge renders pct as a bar of width cells.
func Gauge(pct float64, width int) string {
	if width <= 0 {
		return ""
	}

	pct = math.Max(0, math.Min(100, pct))
	filled := int(math.Round(pct / 100 * float64(width)))

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
