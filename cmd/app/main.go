package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"QuoteCache/internal/di"
	"QuoteCache/internal/domain/models"
	"QuoteCache/internal/service/interval"
	"QuoteCache/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	query := flag.String("query", "", "run one interval query (current, recent or next) and exit")
	exchange := flag.String("exchange", "NYQ", "exchange for -query")
	ivCode := flag.String("interval", "1d", "interval for -query")
	at := flag.String("at", "", "date or timestamp for -query; defaults to now")
	weekMode := flag.String("week-mode", "trading", "week mode for -query")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *query != "" {
		if err := runQuery(cfg, *query, *exchange, *ivCode, *at, *weekMode); err != nil {
			log.Fatalf("query failed: %v", err)
		}
		return
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		cleanup()
		os.Exit(1)
	}
}

type queryResult struct {
	Exchange string                `json:"exchange"`
	Interval string                `json:"interval"`
	At       models.Moment         `json:"at"`
	Found    bool                  `json:"found"`
	Range    *models.IntervalRange `json:"range,omitempty"`
}

func runQuery(cfg *config.Config, mode, exchange, ivCode, atArg, wmArg string) error {
	loc, err := di.InitializeLocator(cfg)
	if err != nil {
		return err
	}
	if _, ok := loc.Registry().Get(exchange); !ok {
		return fmt.Errorf("exchange %q not registered", exchange)
	}
	iv, err := models.ParseInterval(ivCode)
	if err != nil {
		return err
	}
	wm, err := models.ParseWeekMode(wmArg)
	if err != nil {
		return err
	}
	m := models.InstantMoment(time.Now())
	if atArg != "" {
		if m, err = models.ParseMoment(atArg); err != nil {
			return err
		}
	}

	opts := []interval.Option{interval.WithWeekMode(wm)}
	res := queryResult{Exchange: exchange, Interval: iv.String(), At: m, Found: true}
	var r models.IntervalRange
	switch mode {
	case "current":
		r, res.Found = loc.CurrentInterval(exchange, m, iv, opts...)
	case "recent":
		r = loc.MostRecentInterval(exchange, m, iv, opts...)
	case "next":
		r = loc.NextInterval(exchange, m, iv, opts...)
	default:
		return fmt.Errorf("unknown query mode %q", mode)
	}
	if res.Found {
		res.Range = &r
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
