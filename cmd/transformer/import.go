package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/storage"
)

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	address, err := cfg.ContractAddress()
	if err != nil {
		return err
	}
	if cfg.NetworkID == 0 {
		return fmt.Errorf("network id is required")
	}
	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	var input io.Reader = os.Stdin
	if cfg.In != "-" {
		file, err := os.Open(cfg.In)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		input = file
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	collection := model.Collections{Address: address.Hex(), NetworkID: cfg.NetworkID}.RawTransactions()
	logger.Info("import start",
		zap.String("in", cfg.In),
		zap.String("collection", collection),
		zap.Int("batch_size", cfg.BatchSize),
	)

	reader := storage.NewJsonlReader(input)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := reader.ReadBatch(cfg.BatchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		docs := make([]storage.Document, 0, len(batch))
		for _, tx := range batch {
			doc, err := storage.NewDocument(tx.TxHash, tx)
			if err != nil {
				return fmt.Errorf("marshal tx %s: %w", tx.TxHash, err)
			}
			docs = append(docs, doc)
		}
		if err := store.PutMany(ctx, collection, docs); err != nil {
			return fmt.Errorf("insert batch at %d: %w", total, err)
		}
		total += len(docs)
		logger.Debug("batch imported", zap.Int("count", len(docs)), zap.Int("total", total))
	}

	logger.Info("import complete", zap.Int("total", total))
	return nil
}
