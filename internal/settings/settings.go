// Package settings persists user preferences to a YAML file under the
// platform config directory.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chu3/brewpilot/internal/schedule"
)

const settingsFileName = "settings.yaml"

// Settings holds the user-tunable knobs of the application.
type Settings struct {
	Sound            bool
	Haptics          bool
	CountdownSeconds int
	PourDivisor      int
	ListenAddr       string // empty disables the websocket bridge
}

// Default returns the out-of-the-box settings.
func Default() Settings {
	return Settings{
		Sound:            true,
		Haptics:          true,
		CountdownSeconds: 3,
		PourDivisor:      schedule.DefaultPourDivisor,
		ListenAddr:       "",
	}
}

type yamlSettings struct {
	Sound            *bool  `yaml:"sound"`
	Haptics          *bool  `yaml:"haptics"`
	CountdownSeconds *int   `yaml:"countdown_seconds"`
	PourDivisor      *int   `yaml:"pour_divisor"`
	ListenAddr       string `yaml:"listen_addr"`
}

// Load reads settings from YAML. A missing file yields the defaults;
// out-of-range values fall back to their default individually.
func Load(appName string) (Settings, error) {
	settings := Default()
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return settings, err
	}

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	apply(&settings, fileData)
	return settings, nil
}

// Save writes settings to YAML, creating the config directory if needed.
func Save(appName string, settings Settings) error {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlSettings{
		Sound:            &settings.Sound,
		Haptics:          &settings.Haptics,
		CountdownSeconds: &settings.CountdownSeconds,
		PourDivisor:      &settings.PourDivisor,
		ListenAddr:       settings.ListenAddr,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

func resolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func apply(settings *Settings, fileData yamlSettings) {
	if fileData.Sound != nil {
		settings.Sound = *fileData.Sound
	}
	if fileData.Haptics != nil {
		settings.Haptics = *fileData.Haptics
	}
	if fileData.CountdownSeconds != nil && *fileData.CountdownSeconds >= 0 && *fileData.CountdownSeconds <= 10 {
		settings.CountdownSeconds = *fileData.CountdownSeconds
	}
	if fileData.PourDivisor != nil && *fileData.PourDivisor >= 1 && *fileData.PourDivisor <= 10 {
		settings.PourDivisor = *fileData.PourDivisor
	}
	settings.ListenAddr = fileData.ListenAddr
}
