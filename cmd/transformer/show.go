package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/storage"
)

func runShow(cmd *cobra.Command, _ []string) error {
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
	if cfg.ID == "" {
		return fmt.Errorf("id is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	collection := model.Collections{Address: address.Hex(), NetworkID: cfg.NetworkID}.State()
	body, err := store.Get(ctx, collection, documentID(cfg.ID))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no document %s in %s", cfg.ID, collection)
	}
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return fmt.Errorf("format document: %w", err)
	}
	out.WriteByte('\n')
	_, err = cmd.OutOrStdout().Write(out.Bytes())
	return err
}

// documentID keeps numeric ids numeric so typed stores match them; other ids
// are addresses and stored lowercase.
func documentID(raw string) any {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return strings.ToLower(raw)
}
