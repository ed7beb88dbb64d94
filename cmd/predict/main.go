package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/ensemble"
	"github.com/fortuna/halftime/internal/features"
	"github.com/fortuna/halftime/internal/ingest/espn"
	"github.com/fortuna/halftime/internal/logging"
	"github.com/fortuna/halftime/internal/model"
	"github.com/fortuna/halftime/internal/service"
)

const (
	appName    = "halftime-predict"
	appVersion = "1.0.0"
)

func main() {
	var (
		player   = flag.String("player", "", "Player name exactly as the live feed spells it")
		dateStr  = flag.String("date", "", "Game date (YYYY-MM-DD), defaults to today")
		csvPath  = flag.String("csv", os.Getenv("BASELINE_CSV"), "Baseline CSV path")
		dsn      = flag.String("dsn", os.Getenv("BASELINE_DSN"), "Baseline PostgreSQL DSN")
		table    = flag.String("table", getEnv("BASELINE_TABLE", baseline.DefaultTable), "Baseline table name")
		mean     = flag.String("mean", os.Getenv("MODEL_MEAN_PATH"), "Mean model JSON")
		low      = flag.String("low", os.Getenv("MODEL_LOW_PATH"), "Low quantile model JSON")
		high     = flag.String("high", os.Getenv("MODEL_HIGH_PATH"), "High quantile model JSON")
		variant  = flag.String("variant", getEnv("MODEL_VARIANT", string(features.VariantEnsemble)), "single, two-model or ensemble")
		espnBase = flag.String("espn-url", getEnv("ESPN_API_BASE", espn.BaseURL), "ESPN API base URL")
		tz       = flag.String("tz", getEnv("TIMEZONE", "America/New_York"), "Timezone defining today")
		timeout  = flag.Duration("timeout", 30*time.Second, "Overall timeout")
		asJSON   = flag.Bool("json", false, "Print the full result as JSON")
		verbose  = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *player == "" {
		log.Fatalf("%s v%s: --player is required", appName, appVersion)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	zl, err := logging.New(true, level)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	v, err := features.ParseVariant(*variant)
	if err != nil {
		log.Fatalf("parse variant: %v", err)
	}
	if !v.NeedsQuantiles() {
		*low, *high = "", ""
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatalf("load timezone: %v", err)
	}

	var date time.Time
	if *dateStr != "" {
		if date, err = time.Parse(baseline.DateLayout, *dateStr); err != nil {
			log.Fatalf("parse date: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	registry, err := model.LoadRegistry(ctx, model.Paths{Mean: *mean, Low: *low, High: *high})
	if err != nil {
		log.Fatalf("load models: %v", err)
	}

	source, err := baseline.Open(ctx, *csvPath, *dsn, *table)
	if err != nil {
		log.Fatalf("open baseline: %v", err)
	}
	defer source.Close()

	svc := service.NewPredictionService(service.Options{
		Feed:     espn.New(espn.Options{BaseURL: *espnBase, Logger: logger.Named("espn")}),
		Baseline: source,
		Scorer:   ensemble.NewPredictor(registry),
		Variant:  v,
		Location: loc,
		Logger:   logger,
	})

	result, err := svc.Predict(ctx, *player, date)
	if err != nil {
		log.Fatalf("predict: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	if !result.Available() {
		day := *dateStr
		if day == "" {
			day = svc.Today().Format(baseline.DateLayout)
		}
		fmt.Printf("%s is not in any live box score on %s\n", *player, day)
		return
	}
	fmt.Printf("%s (%s): %d pts in %d min, projected %d\n",
		result.Player, result.Date, result.CurrentPTS, result.CurrentMins, result.PredictedFinalPTS)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
