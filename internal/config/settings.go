package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Settings are the operator-level tunables loaded from Settings.ini, as
// opposed to the per-class profile data in YAML.
type Settings struct {
	// Paths
	ProfilePath string
	IconsDir    string
	HistoryDB   string

	// Capture
	Display        int
	CaptureCacheMS int

	// Bar geometry
	BarX1, BarY1, BarX2, BarY2 int
	BarSlots                   int
	BarRescanSeconds           int

	// Execution
	GlobalCooldownMS    int
	MinGlobalCooldownMS int
	MaxGlobalCooldownMS int
	VerifyDelayMS       int
	RetryDelayMS        int
	MaxRetries          int
	RequestTimeoutMS    int
	AutoRetry           bool
	AdaptiveTuning      bool
}

// DefaultSettings returns settings with every key at its default value.
func DefaultSettings() *Settings {
	return &Settings{
		ProfilePath:         "profiles/default.yaml",
		IconsDir:            "icons",
		HistoryDB:           "data/history.db",
		CaptureCacheMS:      50,
		BarSlots:            12,
		BarRescanSeconds:    30,
		GlobalCooldownMS:    1000,
		MinGlobalCooldownMS: 750,
		MaxGlobalCooldownMS: 2000,
		VerifyDelayMS:       150,
		RetryDelayMS:        200,
		MaxRetries:          2,
		RequestTimeoutMS:    5000,
		AutoRetry:           true,
	}
}

// LoadSettings loads configuration from a Settings.ini file.
func LoadSettings(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings file: %w", err)
	}

	settings := &Settings{}

	paths := cfg.Section("Paths")
	settings.ProfilePath = paths.Key("profile").MustString("profiles/default.yaml")
	settings.IconsDir = paths.Key("iconsDir").MustString("icons")
	settings.HistoryDB = paths.Key("historyDB").MustString("data/history.db")

	capture := cfg.Section("Capture")
	settings.Display = capture.Key("display").MustInt(0)
	settings.CaptureCacheMS = capture.Key("cacheMs").MustInt(50)

	bar := cfg.Section("Bar")
	settings.BarX1 = bar.Key("x1").MustInt(0)
	settings.BarY1 = bar.Key("y1").MustInt(0)
	settings.BarX2 = bar.Key("x2").MustInt(0)
	settings.BarY2 = bar.Key("y2").MustInt(0)
	settings.BarSlots = bar.Key("slots").MustInt(12)
	settings.BarRescanSeconds = bar.Key("rescanSeconds").MustInt(30)

	execution := cfg.Section("Execution")
	settings.GlobalCooldownMS = execution.Key("globalCooldownMs").MustInt(1000)
	settings.MinGlobalCooldownMS = execution.Key("minGlobalCooldownMs").MustInt(750)
	settings.MaxGlobalCooldownMS = execution.Key("maxGlobalCooldownMs").MustInt(2000)
	settings.VerifyDelayMS = execution.Key("verifyDelayMs").MustInt(150)
	settings.RetryDelayMS = execution.Key("retryDelayMs").MustInt(200)
	settings.MaxRetries = execution.Key("maxRetries").MustInt(2)
	settings.RequestTimeoutMS = execution.Key("requestTimeoutMs").MustInt(5000)
	settings.AutoRetry = execution.Key("autoRetry").MustBool(true)
	settings.AdaptiveTuning = execution.Key("adaptiveTuning").MustBool(false)

	return settings, nil
}

// CaptureCacheDuration returns the capture cache window.
func (s *Settings) CaptureCacheDuration() time.Duration {
	return time.Duration(s.CaptureCacheMS) * time.Millisecond
}
