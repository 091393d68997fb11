package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Background           string `toml:"background"`
	CursorBackground     string `toml:"cursor_background"`
	CursorEditBackground string `toml:"cursor_edit_background"`
	IndexBackground      string `toml:"index_background"`
	LegendBackground     string `toml:"legend_background"`
	LegendHighlight      string `toml:"legend_highlight"`
	BorderColor          string `toml:"border_color"`
	WordColor            string `toml:"word_color"`
	SelectionBackground  string `toml:"selection_background"`
	MatchBackground      string `toml:"match_background"`
	DirtyColor           string `toml:"dirty_color"`
	DisabledColor        string `toml:"disabled_color"`
}

// Cache tunes the chunk loader. Zero values select the built-in defaults.
type Cache struct {
	ChunkSize int64 `toml:"chunk_size"`
	Budget    int64 `toml:"budget"`
}

type Config struct {
	Theme Theme `toml:"theme"`
	Cache Cache `toml:"cache"`
}

func DefaultConfig() *Config {
	return &Config{
		Theme: Theme{
			Background:           "#000000",
			CursorBackground:     "#0000FF",
			CursorEditBackground: "#FF0000",
			IndexBackground:      "#000080",
			LegendBackground:     "#0000FF",
			LegendHighlight:      "#FF0000",
			BorderColor:          "#0000FF",
			WordColor:            "#333333",
			SelectionBackground:  "#FFAA00",
			MatchBackground:      "#006666",
			DirtyColor:           "#FF0000",
			DisabledColor:        "#666666",
		},
	}
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "hexed.toml"
	}
	return filepath.Join(home, ".config", "hexed", "hexed.toml")
}

func Load() (*Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) Save() error {
	path := ConfigPath()
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

type Styles struct {
	Background      lipgloss.Style
	Cursor          lipgloss.Style
	CursorEdit      lipgloss.Style
	Index           lipgloss.Style
	Legend          lipgloss.Style
	LegendHighlight lipgloss.Style
	Border          lipgloss.Style
	Word            lipgloss.Style
	Selection       lipgloss.Style
	Match           lipgloss.Style
	Dirty           lipgloss.Style
	Disabled        lipgloss.Style
	Normal          lipgloss.Style
	LabelName       lipgloss.Style
	LabelValue      lipgloss.Style
}

func NewStyles(theme *Theme) *Styles {
	return &Styles{
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.Background)),
		Cursor: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.CursorBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		CursorEdit: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.CursorEditBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Index: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.IndexBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Legend: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.LegendBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		LegendHighlight: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.LegendBackground)).
			Foreground(lipgloss.Color(theme.LegendHighlight)).
			Bold(true),
		Border: lipgloss.NewStyle().
			BorderForeground(lipgloss.Color(theme.BorderColor)),
		Word: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.WordColor)),
		Selection: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.SelectionBackground)).
			Foreground(lipgloss.Color("#000000")),
		Match: lipgloss.NewStyle().
			Background(lipgloss.Color(theme.MatchBackground)).
			Foreground(lipgloss.Color("#FFFFFF")),
		Dirty: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.DirtyColor)),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color(theme.DisabledColor)),
		Normal: lipgloss.NewStyle(),
		LabelName: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")),
		LabelValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
	}
}
