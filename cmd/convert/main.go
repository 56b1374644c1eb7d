// Package main converts matched orders from a JSON file into normalized
// outcomes and prints them as JSON. Useful for checking a single order
// against live competitor quotes.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"garden-volume-watch/internal/catalog"
	"garden-volume-watch/internal/comparison"
	"garden-volume-watch/internal/config"
	"garden-volume-watch/internal/conversion"
	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/feed"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/providers"
)

func main() {
	configFile := flag.String("config", os.Getenv("WATCHER_CONFIG"), "Path to YAML config file")
	orderFile := flag.String("order", "", "Matched order JSON (single order, array or feed page)")
	catalogFile := flag.String("catalog", "", "Network catalog JSON; fetched from the feed when empty")
	noCompare := flag.Bool("no-compare", false, "Skip competitor quotes")
	timeout := flag.Duration("timeout", time.Minute, "Overall timeout")
	flag.Parse()

	if *orderFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --order is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// Keep stdout for the JSON result.
	cfg.Logging.Encoding = "console"
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.WithOptions(zap.ErrorOutput(os.Stderr))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, *orderFile, *catalogFile, *noCompare); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, orderFile, catalogFile string, noCompare bool) error {
	orders, err := readOrders(orderFile)
	if err != nil {
		return err
	}

	client := feed.NewClient(cfg.Feed.CatalogURL, cfg.Feed.OrdersURL, feed.WithTimeout(cfg.Feed.Timeout), feed.WithLogger(logger))
	networks, err := loadCatalog(ctx, client, catalogFile)
	if err != nil {
		return err
	}

	feeModel, err := conversion.ParseFeeModel(cfg.Watcher.FeeModel)
	if err != nil {
		return err
	}
	opts := conversion.Options{
		FeeModel:   feeModel,
		GardenTime: conversion.GardenTimeTable(cfg.GardenTime),
		Logger:     logger,
	}
	if !noCompare {
		opts.Comparer = comparison.New(comparison.Options{
			Providers: providers.FromConfig(cfg, logger),
			Timeout:   cfg.Providers.Timeout,
			Logger:    logger,
		})
	}

	conv := conversion.New(catalog.New(networks, catalog.Options{Logger: logger, MatchSymbol: true}), opts)
	outcomes := conv.ConvertBatch(ctx, orders, cfg.Watcher.Concurrency)
	if len(outcomes) == 0 {
		return fmt.Errorf("none of %d orders could be converted", len(orders))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}

// readOrders accepts one order object, or anything feed.DecodePage accepts.
func readOrders(path string) ([]domain.MatchedOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read order file: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var single domain.MatchedOrder
		if err := json.Unmarshal(trimmed, &single); err == nil && single.OrderID() != "" {
			return []domain.MatchedOrder{single}, nil
		}
	}

	page, err := feed.DecodePage(data)
	if err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return page.Orders, nil
}

func loadCatalog(ctx context.Context, client *feed.Client, path string) (domain.NetworkCatalog, error) {
	if path == "" {
		return client.Catalog(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	networks, err := feed.DecodeCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return networks, nil
}
