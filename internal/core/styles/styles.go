// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"sort"

	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// Palette defines a minimal semantic theme palette as hex colors.
type Palette struct {
	Primary    string
	Secondary  string
	Foreground string
	Muted      string
	Background string
	Surface    string
	Success    string
	Warning    string
	Error      string
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// themes holds the built-in named palettes.
var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    "#7aa2f7",
		Secondary:  "#7dcfff",
		Foreground: "#c0caf5",
		Muted:      "#565f89",
		Background: "#1a1b26",
		Surface:    "#3b4261",
		Success:    "#9ece6a",
		Warning:    "#e0af68",
		Error:      "#f7768e",
	},
	"gruvbox": {
		Primary:    "#83a598",
		Secondary:  "#8ec07c",
		Foreground: "#ebdbb2",
		Muted:      "#665c54",
		Background: "#282828",
		Surface:    "#3c3836",
		Success:    "#b8bb26",
		Warning:    "#fabd2f",
		Error:      "#fb4934",
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	// CLI styles.
	HeaderStyle  lipgloss.Style
	TitleStyle   lipgloss.Style
	LinkStyle    lipgloss.Style
	MutedStyle   lipgloss.Style
	DividerStyle lipgloss.Style
	SuccessStyle lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style

	// Task fields.
	TagStyle        lipgloss.Style
	ActiveTagStyle  lipgloss.Style
	UnassignedStyle lipgloss.Style
	AssignedStyle   lipgloss.Style

	// TUI shared styles.
	StatusBarStyle  lipgloss.Style
	HelpStyle       lipgloss.Style
	TableHeader     lipgloss.Style
	TableSelected   lipgloss.Style
	DetailPaneStyle lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	var (
		primary    = lipgloss.Color(p.Primary)
		secondary  = lipgloss.Color(p.Secondary)
		foreground = lipgloss.Color(p.Foreground)
		muted      = lipgloss.Color(p.Muted)
		background = lipgloss.Color(p.Background)
		surface    = lipgloss.Color(p.Surface)
	)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(foreground).
		Bold(true)
	LinkStyle = lipgloss.NewStyle().
		Foreground(secondary).
		Underline(true)
	MutedStyle = lipgloss.NewStyle().
		Foreground(muted)
	DividerStyle = lipgloss.NewStyle().
		Foreground(muted)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error))

	TagStyle = lipgloss.NewStyle().
		Foreground(secondary)
	ActiveTagStyle = lipgloss.NewStyle().
		Foreground(background).
		Background(secondary).
		Bold(true)
	UnassignedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success))
	AssignedStyle = lipgloss.NewStyle().Foreground(foreground)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(foreground).
		Background(surface).
		Padding(0, 1)
	HelpStyle = lipgloss.NewStyle().
		Foreground(muted).
		MarginTop(1)
	TableHeader = lipgloss.NewStyle().
		Foreground(primary).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(muted).
		BorderBottom(true)
	TableSelected = lipgloss.NewStyle().
		Foreground(background).
		Background(primary).
		Bold(false)
	DetailPaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primary).
		Padding(0, 1)
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

func hexPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() ansi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	p := CurrentPalette

	fg := hexPtr(p.Foreground)
	primary := hexPtr(p.Primary)
	secondary := hexPtr(p.Secondary)
	muted := hexPtr(p.Muted)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = hexPtr(p.Surface)
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	return cfg
}
