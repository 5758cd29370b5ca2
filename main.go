package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/droidpilot/droid-tui/app"
	"github.com/droidpilot/droid-tui/client"
	"github.com/droidpilot/droid-tui/config"
	"github.com/droidpilot/droid-tui/style"
)

var version = "dev"

func main() {
	urlFlag := flag.String("url", "", "Backend URL (default $DROIDPILOT_URL or http://localhost:5000)")
	profileFlag := flag.String("profile", "", "Named profile for state isolation (~/.droidpilot/profiles/<name>)")
	themeFlag := flag.String("theme", "", "Color theme (dark, light, catppuccin)")
	noColor := flag.Bool("no-color", false, "Disable ANSI colors")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.BoolVar(showVersion, "V", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("droid-tui %s\n", version)
		os.Exit(0)
	}

	if *noColor {
		lipgloss.SetColorProfile(0)
	}

	home, _ := os.UserHomeDir()
	if *profileFlag != "" {
		app.ProfileDir = filepath.Join(home, ".droidpilot", "profiles", *profileFlag)
	} else {
		app.ProfileDir = filepath.Join(home, ".droidpilot")
	}
	os.MkdirAll(app.ProfileDir, 0o755)

	cfg := config.Load(app.ProfileDir)

	baseURL := os.Getenv("DROIDPILOT_URL")
	if baseURL == "" {
		baseURL = cfg.BackendURL
	}
	if *urlFlag != "" {
		baseURL = *urlFlag
	}
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}

	theme := cfg.Theme
	if *themeFlag != "" {
		theme = *themeFlag
	}
	if theme == "" {
		// Auto-detect terminal background.
		if lipgloss.HasDarkBackground() {
			theme = "dark"
		} else {
			theme = "light"
		}
	}
	style.SetTheme(theme)

	c := client.New(baseURL)
	m := app.New(c, version)

	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
	p := tea.NewProgram(m, opts...)

	go func() {
		p.Send(app.ProgramReady{Program: p})
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "droid-tui: %v\n", err)
		os.Exit(1)
	}
}
