package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arkengard.com/ability-bot-go/internal/classifier"
	"arkengard.com/ability-bot-go/internal/config"
	"arkengard.com/ability-bot-go/internal/cv"
	"arkengard.com/ability-bot-go/internal/engine"
	"arkengard.com/ability-bot-go/internal/events"
	"arkengard.com/ability-bot-go/internal/executor"
	"arkengard.com/ability-bot-go/internal/history"
	"arkengard.com/ability-bot-go/internal/input"
	"arkengard.com/ability-bot-go/pkg/icons"
)

func main() {
	settingsPath := "Settings.ini"
	if len(os.Args) > 1 {
		settingsPath = os.Args[1]
	}

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		log.Printf("Warning: failed to load settings: %v, using defaults", err)
		settings = config.DefaultSettings()
	}

	profile, err := config.LoadProfile(settings.ProfilePath)
	if err != nil {
		log.Fatalf("Failed to load profile %s: %v", settings.ProfilePath, err)
	}

	capturer, err := cv.NewScreenCapturer(settings.Display)
	if err != nil {
		log.Fatalf("Failed to open display %d: %v", settings.Display, err)
	}
	capture := cv.NewServiceWithCache(capturer, settings.CaptureCacheDuration())

	registry := icons.NewRegistry(settings.IconsDir)
	if err := registry.LoadFromDirectory(settings.IconsDir); err != nil {
		// Icons can still register lazily from ability icon paths.
		log.Printf("Warning: icon registry not loaded from %s: %v", settings.IconsDir, err)
	}

	bus := events.NewEventBus(100)
	defer bus.Stop()

	cls := classifier.New(capture, registry)

	coordinator := engine.NewCoordinator(cls, registry, bus)
	if err := coordinator.LoadProfile(profile); err != nil {
		log.Fatalf("Failed to apply profile: %v", err)
	}

	barRegion := cv.Region{X1: settings.BarX1, Y1: settings.BarY1, X2: settings.BarX2, Y2: settings.BarY2}
	coordinator.Initialize(barRegion, settings.BarSlots,
		time.Duration(settings.BarRescanSeconds)*time.Second)

	execCfg := executor.Config{
		GlobalCooldown:    time.Duration(settings.GlobalCooldownMS) * time.Millisecond,
		MinGlobalCooldown: time.Duration(settings.MinGlobalCooldownMS) * time.Millisecond,
		MaxGlobalCooldown: time.Duration(settings.MaxGlobalCooldownMS) * time.Millisecond,
		VerifyDelay:       time.Duration(settings.VerifyDelayMS) * time.Millisecond,
		RetryDelay:        time.Duration(settings.RetryDelayMS) * time.Millisecond,
		MaxRetries:        settings.MaxRetries,
		RequestTimeout:    time.Duration(settings.RequestTimeoutMS) * time.Millisecond,
		AutoRetry:         settings.AutoRetry,
		AdaptiveTuning:    settings.AdaptiveTuning,
		HighLatency:       400 * time.Millisecond,
		LowLatency:        100 * time.Millisecond,
	}

	sender := input.NewOSCommandSender()
	if !sender.IsSupported() {
		log.Println("Warning: no supported input backend on this platform, key presses will fail")
	}

	exec := executor.New(execCfg, coordinator.Table(), sender, cls, coordinator.DetectionConfig(), bus)

	store, err := history.Open(settings.HistoryDB)
	if err != nil {
		log.Printf("Warning: execution history disabled: %v", err)
	} else {
		defer store.Close()
		exec.WithHistorySink(store)
	}

	coordinator.SetExecutor(exec)

	bus.Subscribe(events.EventTypeStateChanged, func(e events.Event) {
		log.Printf("[%s] %v", e.Type, e.Data)
	})
	bus.Subscribe(events.EventTypeError, func(e events.Event) {
		log.Printf("[%s] %v", e.Type, e.Data)
	})

	matches := coordinator.AutoDetect()
	log.Printf("Auto-detect bound %d of %d slots", len(matches), settings.BarSlots)

	coordinator.StartMonitoring()
	log.Printf("Monitoring %s (rotation: %s). Ctrl+C to stop.",
		profile.Name, coordinator.ActiveRotation())

	rotationLoop(coordinator)

	coordinator.Stop()
	log.Println("Shutdown complete")
}

// rotationLoop drives the active rotation until interrupted.
func rotationLoop(c *engine.Coordinator) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			ab, ok := c.GetNextFromRotation("")
			if !ok {
				continue
			}
			c.Execute(ab.Name, executor.ModeQueued, ab.Priority, true)
		}
	}
}
