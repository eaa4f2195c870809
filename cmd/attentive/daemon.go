package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Atharva-Kanherkar/attentive/internal/api"
	"github.com/Atharva-Kanherkar/attentive/internal/auth"
	"github.com/Atharva-Kanherkar/attentive/internal/daemon"
	"github.com/Atharva-Kanherkar/attentive/internal/notify"
)

func init() {
	cmd := &cobra.Command{
		Use:     "daemon",
		Aliases: []string{"d"},
		Short:   "Serve the HTTP API and live updates",
		RunE:    runDaemon,
	}
	cmd.Flags().BoolP("track", "t", false, "Start tracking immediately")
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	RootCmd.AddCommand(cmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Attentive starting...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := notify.NewHub()
	go hub.Run(ctx)

	identity := auth.NewProvider(cfg.Cloud.JWTSecret, cfg.Cloud.TokenPath)
	manager, err := daemon.Open(cfg, hub, identity)
	if err != nil {
		return err
	}
	defer manager.Close()

	backend, owner := manager.Storage()
	log.Printf("Storage: %s (owner %s) at %s", backend, owner, cfg.StoragePath)

	go manager.RunSweeper(ctx)

	if track, _ := cmd.Flags().GetBool("track"); track {
		if res := manager.StartTracking(ctx); !res.Success {
			log.Printf("Failed to start tracking: %s", res.Error)
		}
	} else if err := manager.LoadHistory(ctx); err != nil {
		log.Printf("%v", err)
	}

	srv := api.NewServer(manager, hub, identity, cfg.Server.Mode)
	log.Println("Attentive running. Press Ctrl+C to stop.")
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		return err
	}

	log.Println("Shutting down...")
	if res := manager.StopTracking(context.Background()); !res.Success {
		log.Printf("Stop tracking: %s", res.Error)
	}
	log.Println("Attentive stopped.")
	return nil
}
