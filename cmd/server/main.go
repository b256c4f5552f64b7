package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/alertdesk/internal/api"
	"github.com/good-yellow-bee/alertdesk/internal/metrics"
	"github.com/good-yellow-bee/alertdesk/internal/notifier"
	"github.com/good-yellow-bee/alertdesk/internal/scheduler"
	"github.com/good-yellow-bee/alertdesk/internal/search"
	"github.com/good-yellow-bee/alertdesk/internal/storage"
	"github.com/good-yellow-bee/alertdesk/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "alertdesk-server",
	Short: "AlertDesk Server - Security alert review and notification backend",
	Long: `AlertDesk Server polls the alert index for new security alerts,
tracks their review state, and notifies operators by email.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alertdesk-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Secrets come from the environment
	jwtSecret := os.Getenv("ALERTDESK_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("ALERTDESK_JWT_SECRET environment variable is required")
	}
	osPassword := os.Getenv("ALERTDESK_OPENSEARCH_PASSWORD")

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Create default admin user on first run
	if err := store.EnsureAdminUser(); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Connect to the alert index
	client, err := search.NewClient(search.ClientConfig{
		Addresses:          cfg.OpenSearch.Addresses,
		Username:           cfg.OpenSearch.Username,
		Password:           osPassword,
		InsecureSkipVerify: cfg.OpenSearch.InsecureSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("connect opensearch: %w", err)
	}
	reader := search.NewReader(client)

	// Notification dispatcher
	dispatcher := notifier.NewDispatcher(store.Notifications(), notifier.NewSMTPMailer())

	// HTTP API server
	apiCfg := &api.Config{
		Address:          cfg.Server.Address,
		JWTSecret:        []byte(jwtSecret),
		AccessTokenTTL:   cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL:  cfg.Auth.RefreshTokenTTL,
		RateLimitPerIP:   cfg.Auth.RateLimitPerIP,
		RateLimitPerUser: cfg.Auth.RateLimitPerUser,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		Verbose:          cfg.Verbose,
	}
	srv, err := api.New(apiCfg, store, reader, dispatcher)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting alertdesk-server %s", config.Version)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	if cfg.Scheduler.Enabled {
		poller := scheduler.NewPoller(reader, scheduler.NewStore(store), dispatcher)
		poller.SetInterval(cfg.Scheduler.PollInterval)
		g.Go(func() error {
			return poller.Run(ctx)
		})
	} else {
		log.Printf("scheduler disabled, alerts must be registered manually")
	}

	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			return metricsSrv.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
