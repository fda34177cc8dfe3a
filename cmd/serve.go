// cmd/serve.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexc/authgate/internal/config"
	"github.com/alexc/authgate/internal/log"
	"github.com/alexc/authgate/internal/notify"
	"github.com/alexc/authgate/internal/oauth"
	"github.com/alexc/authgate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OAuth broker server",
	Long:  `Starts the HTTP server with the per-provider init, callback, success, and error endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// CLI flags override environment variables
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("host") {
			cfg.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("state-store") {
			cfg.StateStore, _ = cmd.Flags().GetString("state-store")
		}

		log.Init(&log.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

		store, err := buildFlowStore(cfg)
		if err != nil {
			return err
		}

		registry := oauth.NewRegistry()
		for name, creds := range cfg.Providers {
			pcfg, ok := oauth.Defaults(name)
			if !ok {
				continue
			}
			pcfg.ClientID = creds.ClientID
			pcfg.ClientSecret = creds.ClientSecret
			pcfg.RedirectURL = creds.CallbackURL
			registry.Register(oauth.NewBroker(pcfg, store))
		}
		if len(registry.Names()) == 0 {
			return fmt.Errorf("no OAuth providers configured; set at least one of %v credentials", oauth.KnownProviders())
		}

		srv := server.New(registry, server.Config{
			BaseURL:             cfg.PublicBaseURL,
			AllowedRedirectURLs: cfg.AllowedRedirectURLs,
		})

		if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
			notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
			if err != nil {
				log.Warn("telegram notifier disabled", "error", err.Error())
			} else {
				srv.SetNotifier(notifier)
			}
		}

		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		fmt.Printf("Starting authgate on %s\n", addr)
		fmt.Printf("  Providers: %v\n", registry.Names())
		fmt.Printf("  State store: %s\n", cfg.StateStore)

		return srv.ListenAndServe(addr)
	},
}

// buildFlowStore creates the configured state-store backend. The memory
// backend runs a periodic sweep for abandoned flows; the sqlite one cleans
// up expired rows once at startup and lazily on consume.
func buildFlowStore(cfg *config.Config) (oauth.FlowStore, error) {
	switch cfg.StateStore {
	case "sqlite":
		store, err := oauth.NewSQLiteStore(cfg.StateDBPath)
		if err != nil {
			return nil, fmt.Errorf("open state store: %w", err)
		}
		if err := store.CleanupExpired(context.Background()); err != nil {
			log.Warn("state store cleanup failed", "error", err.Error())
		}
		return store, nil
	default:
		store := oauth.NewMemoryStore()
		store.StartSweeper(context.Background(), time.Minute)
		return store, nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 3001, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("state-store", "memory", "Flow state backend: memory or sqlite")
}
