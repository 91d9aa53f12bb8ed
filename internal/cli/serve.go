package cli

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindwell/recall/internal/consolidation"
	"github.com/mindwell/recall/internal/notify"
	"github.com/mindwell/recall/internal/privacy"
	"github.com/mindwell/recall/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recall service",
		Long: "Starts the HTTP API, the periodic consolidation scheduler, and, when\n" +
			"configured, the filesystem ingestion inbox. Runs until interrupted.",
		Run: runServe,
	}
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store := openStore(cfg)
	defer store.Close()

	router := buildRouter(cfg, store)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := router.Initialize(ctx); err != nil {
		exitErr("initialize router", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = router.Shutdown(shutdownCtx)
	}()

	svcCfg := consolidation.DefaultConfig()
	svcCfg.PromotionThreshold = cfg.Consolidation.PromotionThreshold
	svcCfg.MinImportance = cfg.Consolidation.MinImportance
	svc, err := consolidation.NewService(store, privacy.MustNewAnalyzer(), svcCfg)
	if err != nil {
		exitErr("configure consolidation", err)
	}

	if _, _, err := server.Start(ctx, cfg, router, svc, store); err != nil {
		exitErr("start server", err)
	}

	if cfg.Ingest.WatchDir != "" {
		watcher := notify.NewInboxWatcher(cfg.Ingest.WatchDir, router)
		if err := watcher.Start(ctx); err != nil {
			exitErr("start inbox watcher", err)
		}
		defer watcher.Stop()
	}

	if cfg.Consolidation.Interval > 0 {
		go consolidationLoop(ctx, svc, cfg.Consolidation.Interval)
	}

	if cfg.Backup.Dir != "" && cfg.Storage.Engine == "sqlite" {
		go func() {
			if err := backupService(cfg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("recall: WARNING: backup scheduler stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("recall: shutting down")
}

// consolidationLoop runs sweeps at the configured interval until the context
// is cancelled.
func consolidationLoop(ctx context.Context, svc *consolidation.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := svc.Consolidate(ctx)
			if err != nil {
				log.Printf("recall: WARNING: consolidation sweep failed: %v", err)
				continue
			}
			if report.Promoted > 0 || report.Expired > 0 {
				log.Printf("recall: consolidation evaluated %d, promoted %d, expired %d",
					report.Evaluated, report.Promoted, report.Expired)
			}
		}
	}
}
