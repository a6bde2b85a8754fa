package domain

import (
	"errors"
	"fmt"
)

var ErrUnknownTheme = errors.New("unknown theme")

// Theme is a content category. The set is closed; ParseTheme rejects anything else.
type Theme uint8

const (
	ThemeCountries Theme = iota + 1
	ThemeNature
	ThemeHistory
	ThemeAfricaFocus
	ThemeOrigins
	// ThemeRandomMix is synthetic: it pools every content theme.
	ThemeRandomMix
)

var contentThemes = []Theme{
	ThemeCountries,
	ThemeNature,
	ThemeHistory,
	ThemeAfricaFocus,
	ThemeOrigins,
}

// ContentThemes returns every theme that owns facts, in menu order.
func ContentThemes() []Theme {
	out := make([]Theme, len(contentThemes))
	copy(out, contentThemes)
	return out
}

// AllThemes returns the content themes followed by ThemeRandomMix.
func AllThemes() []Theme {
	return append(ContentThemes(), ThemeRandomMix)
}

// ParseTheme maps a stored or callback id to a Theme.
func ParseTheme(s string) (Theme, error) {
	switch s {
	case "countries":
		return ThemeCountries, nil
	case "nature":
		return ThemeNature, nil
	case "history":
		return ThemeHistory, nil
	case "africa_focus":
		return ThemeAfricaFocus, nil
	case "origins":
		return ThemeOrigins, nil
	case "random_mix":
		return ThemeRandomMix, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
}

// String returns the stable id used in storage and callback data.
func (t Theme) String() string {
	switch t {
	case ThemeCountries:
		return "countries"
	case ThemeNature:
		return "nature"
	case ThemeHistory:
		return "history"
	case ThemeAfricaFocus:
		return "africa_focus"
	case ThemeOrigins:
		return "origins"
	case ThemeRandomMix:
		return "random_mix"
	default:
		return fmt.Sprintf("theme(%d)", uint8(t))
	}
}

func (t Theme) Title() string {
	switch t {
	case ThemeCountries:
		return "Countries"
	case ThemeNature:
		return "Nature"
	case ThemeHistory:
		return "History"
	case ThemeAfricaFocus:
		return "Africa Focus"
	case ThemeOrigins:
		return "Origins"
	case ThemeRandomMix:
		return "Random Mix"
	default:
		return t.String()
	}
}

func (t Theme) Emoji() string {
	switch t {
	case ThemeCountries:
		return "🌎"
	case ThemeNature:
		return "🌿"
	case ThemeHistory:
		return "🏺"
	case ThemeAfricaFocus:
		return "🌍"
	case ThemeOrigins:
		return "🔍"
	case ThemeRandomMix:
		return "🎲"
	default:
		return "•"
	}
}

// Fact is an immutable content unit.
type Fact struct {
	ID        string // "<theme>-<n>", stable across restarts for a given asset set
	Theme     Theme
	Drop      string // headline
	Hook      string
	Expand    string // body
	CTA       string
	ShareText string
}
