package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Atharva-Kanherkar/attentive/internal/auth"
	"github.com/Atharva-Kanherkar/attentive/internal/daemon"
)

func init() {
	RootCmd.AddCommand(
		&cobra.Command{
			Use:   "login <token>",
			Short: "Sign in with an account token",
			Args:  cobra.ExactArgs(1),
			RunE:  runLogin,
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out; new data is stored locally",
			RunE:  runLogout,
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the signed-in account and the active store",
			RunE:  runWhoami,
		},
	)
}

func openProvider() (*auth.Provider, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return auth.NewProvider(cfg.Cloud.JWTSecret, cfg.Cloud.TokenPath), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	p, err := openProvider()
	if err != nil {
		return err
	}
	claims, err := p.Login(args[0])
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("Signed in as %s (%s)\n", claims.Username, claims.UserID)
	if claims.ExpiresAt != nil {
		fmt.Printf("Token expires %s\n", claims.ExpiresAt.Time.Format(time.RFC1123))
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	p, err := openProvider()
	if err != nil {
		return err
	}
	if err := p.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := auth.NewProvider(cfg.Cloud.JWTSecret, cfg.Cloud.TokenPath)

	repo, err := daemon.OpenStorage(cfg, p)
	if err != nil {
		return err
	}
	defer repo.Close()
	backend, owner := repo.Target()

	if c := p.Claims(); c != nil {
		fmt.Printf("Signed in as %s (%s)\n", c.Username, c.UserID)
	} else {
		fmt.Println("Not signed in")
	}
	fmt.Printf("Store: %s, owner %s\n", backend, owner)
	return nil
}
