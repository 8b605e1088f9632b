package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettings(t *testing.T) {
	content := `[Paths]
profile = profiles/firemage.yaml
iconsDir = assets/icons
historyDB = state/history.db

[Capture]
display = 1
cacheMs = 75

[Bar]
x1 = 100
y1 = 900
x2 = 676
y2 = 948
slots = 10
rescanSeconds = 45

[Execution]
globalCooldownMs = 1200
minGlobalCooldownMs = 800
maxGlobalCooldownMs = 2500
maxRetries = 3
autoRetry = false
adaptiveTuning = true
`
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.ProfilePath != "profiles/firemage.yaml" || s.IconsDir != "assets/icons" {
		t.Errorf("paths: %+v", s)
	}
	if s.Display != 1 || s.CaptureCacheMS != 75 {
		t.Errorf("capture: %+v", s)
	}
	if s.BarX1 != 100 || s.BarY2 != 948 || s.BarSlots != 10 || s.BarRescanSeconds != 45 {
		t.Errorf("bar: %+v", s)
	}
	if s.GlobalCooldownMS != 1200 || s.MinGlobalCooldownMS != 800 || s.MaxGlobalCooldownMS != 2500 {
		t.Errorf("cooldowns: %+v", s)
	}
	if s.MaxRetries != 3 || s.AutoRetry || !s.AdaptiveTuning {
		t.Errorf("execution: %+v", s)
	}
	if s.CaptureCacheDuration() != 75*time.Millisecond {
		t.Errorf("cache duration: %v", s.CaptureCacheDuration())
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultSettings()
	if *s != *want {
		t.Errorf("empty file should yield defaults:\ngot  %+v\nwant %+v", s, want)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings("/nowhere/Settings.ini"); err == nil {
		t.Error("missing file must error")
	}
}
