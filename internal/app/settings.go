package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tasksheet/internal/store"
	"tasksheet/internal/task"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Settings are the display preferences kept alongside the tasks.
type Settings struct {
	Theme       string `json:"theme"`
	ColorScheme string `json:"colorScheme"`
}

// DefaultSettings returns the preferences of a fresh install.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeLight, ColorScheme: "purple"}
}

// ErrInvalidTheme is returned for a theme other than light or dark.
var ErrInvalidTheme = errors.New("invalid theme")

// merge overlays the non-empty fields of o.
func (s Settings) merge(o Settings) Settings {
	if o.Theme != "" {
		s.Theme = o.Theme
	}
	if o.ColorScheme != "" {
		s.ColorScheme = o.ColorScheme
	}
	return s
}

// Settings loads the saved preferences over the defaults.
func (a *App) Settings(ctx context.Context) (Settings, error) {
	var saved Settings
	if _, err := store.LoadJSON(ctx, a.store, store.KeySettings, &saved); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to load settings: %w", err)
	}
	return DefaultSettings().merge(saved), nil
}

// SaveSettings validates and stores s.
func (a *App) SaveSettings(ctx context.Context, s Settings) error {
	switch s.Theme {
	case ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTheme, s.Theme)
	}
	s.ColorScheme = strings.TrimSpace(s.ColorScheme)
	if err := store.SaveJSON(ctx, a.store, store.KeySettings, s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Backup is the export file format.
type Backup struct {
	Tasks      []task.Task `json:"tasks"`
	Settings   *Settings   `json:"settings,omitempty"`
	ExportedAt time.Time   `json:"exportedAt"`
}

// ErrInvalidBackup is returned when an import file has no task list.
var ErrInvalidBackup = errors.New("invalid backup file")

// Export writes the tasks and settings as indented JSON.
func (a *App) Export(ctx context.Context, w io.Writer) (int, error) {
	settings, err := a.Settings(ctx)
	if err != nil {
		return 0, err
	}
	b := Backup{
		Tasks:      a.Tasks.All(),
		Settings:   &settings,
		ExportedAt: time.Now().UTC(),
	}
	if b.Tasks == nil {
		b.Tasks = []task.Task{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return 0, fmt.Errorf("failed to write backup: %w", err)
	}
	return len(b.Tasks), nil
}

// Import replaces the local tasks, and merges the settings, from a backup.
// Imported tasks are not queued for sync.
func (a *App) Import(ctx context.Context, r io.Reader) (int, error) {
	var raw struct {
		Tasks    *[]task.Task `json:"tasks"`
		Settings *Settings    `json:"settings"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if raw.Tasks == nil {
		return 0, fmt.Errorf("%w: no tasks", ErrInvalidBackup)
	}

	if err := a.Tasks.Replace(ctx, *raw.Tasks); err != nil {
		return 0, err
	}
	if raw.Settings != nil {
		current, err := a.Settings(ctx)
		if err != nil {
			return 0, err
		}
		merged := current.merge(*raw.Settings)
		if merged.Theme != ThemeDark {
			merged.Theme = ThemeLight
		}
		if err := a.SaveSettings(ctx, merged); err != nil {
			return 0, err
		}
	}
	return len(*raw.Tasks), nil
}
