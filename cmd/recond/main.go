// Package main provides the recond daemon - the trade reconciliation engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/straitsenergy/reconengine/internal/api"
	"github.com/straitsenergy/reconengine/internal/config"
	"github.com/straitsenergy/reconengine/internal/loader"
	"github.com/straitsenergy/reconengine/internal/model"
	"github.com/straitsenergy/reconengine/internal/normalize"
	"github.com/straitsenergy/reconengine/internal/report"
	"github.com/straitsenergy/reconengine/internal/router"
	"github.com/straitsenergy/reconengine/internal/storage"
	"github.com/straitsenergy/reconengine/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	// Parse flags
	var (
		dataDir      = flag.String("data-dir", "~/.reconengine", "Data directory")
		configFile   = flag.String("config", "", "Config file path (default: built-in configuration)")
		traderFile   = flag.String("trader", "", "Trader trades CSV file")
		exchangeFile = flag.String("exchange", "", "Exchange trades CSV file")
		outputDir    = flag.String("output", "", "Directory for result files (default: no files written)")
		groupFilter  = flag.Int64("group", 0, "Reconcile only this exchange group (default: all groups)")
		positions    = flag.Bool("positions", false, "Run position analysis instead of trade matching")
		serveAddr    = flag.String("serve", "", "Serve the HTTP API on this address instead of batch mode")
		noArchive    = flag.Bool("no-archive", false, "Disable the run archive database")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion  = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	// Set up logging
	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("recond %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	// Load configuration
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
	} else {
		cfg = config.Default()
		err = cfg.Validate()
	}
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	norm, err := normalize.New(&cfg.Normalizer)
	if err != nil {
		log.Fatal("Failed to build normalizer", "error", err)
	}

	// API mode: run the HTTP server until interrupted.
	if *serveAddr != "" {
		var store *storage.Storage
		if !*noArchive {
			store, err = storage.New(&storage.Config{DataDir: *dataDir})
			if err != nil {
				log.Fatal("Failed to open run archive", "error", err)
			}
			defer store.Close()
		}

		server := api.NewServer(cfg, norm, store)
		if err := server.Start(*serveAddr); err != nil {
			log.Fatal("Failed to start API server", "error", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			log.Error("Shutdown error", "error", err)
		}
		return
	}

	// Batch mode needs both input files.
	if *traderFile == "" || *exchangeFile == "" {
		log.Error("Both -trader and -exchange files are required in batch mode")
		flag.Usage()
		os.Exit(2)
	}

	trader, err := loader.LoadCSV(*traderFile, model.SourceTrader, norm)
	if err != nil {
		log.Fatal("Failed to load trader trades", "error", err)
	}
	exchange, err := loader.LoadCSV(*exchangeFile, model.SourceExchange, norm)
	if err != nil {
		log.Fatal("Failed to load exchange trades", "error", err)
	}
	log.Info("Loaded trades", "trader", len(trader), "exchange", len(exchange))

	if *groupFilter != 0 {
		trader = filterGroup(trader, *groupFilter)
		exchange = filterGroup(exchange, *groupFilter)
		log.Info("Filtered to exchange group", "group", *groupFilter,
			"trader", len(trader), "exchange", len(exchange))
	}

	rt := router.New(cfg, nil, log)

	if *positions {
		runPositions(rt, trader, exchange)
		return
	}

	results, err := rt.Run(trader, exchange)
	if err != nil {
		log.Fatal("Reconciliation failed", "error", err)
	}

	fmt.Print(report.Summary(results))

	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0o755); err != nil {
			log.Fatal("Failed to create output directory", "error", err)
		}
		records := report.AllRecords(results)
		csvPath := filepath.Join(*outputDir, "recon_results.csv")
		if err := report.WriteCSV(csvPath, records); err != nil {
			log.Fatal("Failed to write CSV output", "error", err)
		}
		jsonPath := filepath.Join(*outputDir, "recon_results.json")
		if err := report.WriteJSON(jsonPath, records); err != nil {
			log.Fatal("Failed to write JSON output", "error", err)
		}
		log.Info("Wrote result files", "csv", csvPath, "json", jsonPath)
	}

	if !*noArchive {
		store, err := storage.New(&storage.Config{DataDir: *dataDir})
		if err != nil {
			log.Error("Failed to open run archive, skipping", "error", err)
		} else {
			defer store.Close()
			runID := uuid.NewString()[:8]
			if err := store.SaveRun(runID, results); err != nil {
				log.Error("Failed to archive run", "error", err)
			} else {
				log.Info("Archived run", "run", runID)
			}
		}
	}

	// Unmatched trades are analytical output, not a failure.
	os.Exit(0)
}

// filterGroup keeps only the trades of one exchange group.
func filterGroup(trades []model.Trade, group int64) []model.Trade {
	out := make([]model.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ExchangeGroupID != nil && *t.ExchangeGroupID == group {
			out = append(out, t)
		}
	}
	return out
}

// runPositions prints Rule 0 position comparisons per group.
func runPositions(rt *router.Router, trader, exchange []model.Trade) {
	results := rt.RunPositions(trader, exchange)
	groups := make([]int64, 0, len(results))
	for g := range results {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	for _, groupID := range groups {
		res := results[groupID]
		fmt.Printf("group %d (%s): %d positions, %d matched, %d discrepancies\n",
			groupID, res.Family.Label(), res.Summary.Total, res.Summary.Matched,
			res.Summary.Discrepancies)
		for _, c := range res.Comparisons {
			if !c.HasDiscrepancy() {
				continue
			}
			fmt.Printf("  %s %s: trader %s, exchange %s, diff %s %s [%s]\n",
				c.ContractMonth, c.Product,
				c.TraderQuantity, c.ExchangeQuantity,
				c.Difference, c.Unit, c.Status)
		}
	}
}
