package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ethereumIndexer/internal/auction"
	"ethereumIndexer/internal/config"
	"ethereumIndexer/internal/lending"
	"ethereumIndexer/internal/storage"
	"ethereumIndexer/internal/storage/mongo"
	"ethereumIndexer/internal/storage/postgres"
	"ethereumIndexer/internal/transform"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "transformer",
		Short:        "Materialize contract state from crawled transactions",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("preset", "", "known deployment (azrael, rkl_club_auction)")
	root.PersistentFlags().String("address", "", "tracked contract address")
	root.PersistentFlags().Uint64("network-id", 0, "network id of the tracked contract")
	root.PersistentFlags().String("store", config.StoreMongo, "document store (mongo, postgres, memory)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().String("mongo-uri", "", "MongoDB URI (defaults to MONGO_URI)")
	root.PersistentFlags().String("mongo-database", mongo.DefaultDatabase, "MongoDB database")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "also write logs to this file, rotated")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the transform loop",
		RunE:  runTransform,
	}

	runCmd.Flags().String("transformer", "", "transformer name (azrael, rkl_club_auction)")
	runCmd.Flags().Duration("poll-interval", 10*time.Second, "sleep between cycles")
	runCmd.Flags().Bool("once", false, "run a single cycle and exit")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts for store reads")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address")

	root.AddCommand(runCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk insert crawled transactions from JSONL",
		RunE:  runImport,
	}

	importCmd.Flags().String("in", "", "input raw transactions JSONL (- for stdin)")
	importCmd.Flags().Int("batch-size", 500, "documents per insert")

	root.AddCommand(importCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print one materialized document",
		RunE:  runShow,
	}

	showCmd.Flags().String("id", "", "document id (lending id or bidder address)")

	root.AddCommand(showCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	return config.Load(cfgFile, cmd.Flags())
}

func newRegistry() (*transform.Registry, error) {
	registry := transform.NewRegistry()
	if err := registry.Register(lending.Name, lending.New); err != nil {
		return nil, err
	}
	if err := registry.Register(auction.Name, auction.New); err != nil {
		return nil, err
	}
	return registry, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("store ready", zap.String("store", cfg.Store), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
		return store, nil
	case config.StoreMongo:
		store, err := mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		logger.Info("store ready",
			zap.String("store", cfg.Store),
			zap.String("mongo_uri", redactDSN(cfg.MongoURI)),
			zap.String("database", cfg.MongoDatabase),
		)
		return store, nil
	default:
		logger.Warn("using in-memory store, nothing will be persisted")
		return storage.NewMemoryStore(), nil
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
