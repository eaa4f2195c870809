package daemon

import (
	"fmt"
	"log"
	"time"

	"github.com/Atharva-Kanherkar/attentive/internal/ai"
	"github.com/Atharva-Kanherkar/attentive/internal/auth"
	"github.com/Atharva-Kanherkar/attentive/internal/capture/document"
	"github.com/Atharva-Kanherkar/attentive/internal/capture/screen"
	"github.com/Atharva-Kanherkar/attentive/internal/capture/window"
	"github.com/Atharva-Kanherkar/attentive/internal/config"
	"github.com/Atharva-Kanherkar/attentive/internal/notify"
	"github.com/Atharva-Kanherkar/attentive/internal/platform"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

// OpenStorage opens the local backend and, when configured, the cloud
// backend, behind an adapter that resolves the owner from identity.
func OpenStorage(cfg *config.Config, identity storage.Identity) (*storage.Adapter, error) {
	if err := cfg.EnsureStorageDir(); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	local, err := storage.NewSQLiteStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	var cloud storage.Backend
	if cfg.Cloud.RedisAddr != "" {
		rs, err := storage.NewRedisStore(storage.RedisOptions{
			Addr:      cfg.Cloud.RedisAddr,
			Username:  cfg.Cloud.RedisUsername,
			Password:  cfg.Cloud.RedisPassword,
			DB:        cfg.Cloud.RedisDB,
			KeyPrefix: cfg.Cloud.KeyPrefix,
		})
		if err != nil {
			// signed-in writes fall back to the local store
			log.Printf("[storage] Cloud backend unavailable: %v", err)
		} else {
			cloud = rs
		}
	}
	return storage.NewAdapter(local, cloud, identity), nil
}

// Open detects the platform and wires the real collaborators. hub may be
// nil when nothing listens for live updates; a nil identity is loaded
// from the configured token file.
func Open(cfg *config.Config, hub *notify.Hub, identity *auth.Provider) (*Manager, error) {
	plat, err := platform.Detect()
	if err != nil {
		return nil, fmt.Errorf("failed to detect platform: %w", err)
	}
	for _, missing := range plat.CheckRequirements() {
		log.Printf("[daemon] %s", missing)
	}

	if identity == nil {
		identity = auth.NewProvider(cfg.Cloud.JWTSecret, cfg.Cloud.TokenPath)
	}
	repo, err := OpenStorage(cfg, identity)
	if err != nil {
		return nil, err
	}

	client := ai.NewClient(ai.Config{
		APIKey:      cfg.AI.OpenRouterKey,
		BaseURL:     cfg.AI.OpenRouterBase,
		VisionModel: cfg.AI.VisionModel,
		ChatModel:   cfg.AI.ChatModel,
		Timeout:     cfg.AITimeout(),
	})

	var desktop *notify.DesktopNotifier
	if cfg.Notifications.Desktop {
		desktop = notify.NewDesktopNotifier(time.Duration(cfg.Notifications.ExpireSeconds) * time.Second)
	}

	return New(cfg, Deps{
		Repo:     repo,
		Windows:  window.New(plat),
		Screen:   screen.New(plat),
		Analyzer: client,
		Reporter: client,
		Enricher: document.NewResolver(cfg.DocumentDirs),
		Hub:      hub,
		Desktop:  desktop,
		Closer:   repo,
	}), nil
}
