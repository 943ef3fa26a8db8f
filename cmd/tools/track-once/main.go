// track-once runs one live tracking and prints it.
//
//	go run ./cmd/tools/track-once -fixture 1035037 -option "Victoire domicile@2.10@100" -option "Plus de 2.5 buts@1.90@50"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/config"
	"github.com/Vodeneev/livebet/internal/pkg/enums"
	"github.com/Vodeneev/livebet/internal/pkg/logging"
	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/pkg/validation"
	"github.com/Vodeneev/livebet/internal/tracker/provider"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
)

// optionFlags collects repeated -option "phrase@odds@stake" values.
type optionFlags []models.HeldOption

func (o *optionFlags) String() string {
	parts := make([]string, 0, len(*o))
	for _, opt := range *o {
		parts = append(parts, opt.Phrase)
	}
	return strings.Join(parts, ", ")
}

func (o *optionFlags) Set(v string) error {
	fields := strings.Split(v, "@")
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("want phrase@odds[@stake], got %q", v)
	}
	odds, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return fmt.Errorf("invalid odds %q: %w", fields[1], err)
	}
	stake := 0.0
	if len(fields) == 3 {
		if stake, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
			return fmt.Errorf("invalid stake %q: %w", fields[2], err)
		}
	}
	opt := validation.Option{Phrase: fields[0], Odds: odds, Stake: stake}
	if err := validation.ValidateOption(opt); err != nil {
		return err
	}
	*o = append(*o, models.NewHeldOption(validation.SanitizePhrase(opt.Phrase), odds, stake))
	return nil
}

func main() {
	var (
		configPath string
		fixtureID  int64
		bookmaker  string
		asJSON     bool
		timeout    time.Duration
		options    optionFlags
	)
	flag.StringVar(&configPath, "config", "", "Path to config file (can be set via CONFIG_PATH env var)")
	flag.Int64Var(&fixtureID, "fixture", 0, "Provider fixture id")
	flag.StringVar(&bookmaker, "bookmaker", "", "Bookmaker name (default from config)")
	flag.BoolVar(&asJSON, "json", false, "Print the full tracking as JSON")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Var(&options, "option", `Held option as "phrase@odds@stake", repeatable`)
	flag.Parse()

	if err := validation.ValidateFixtureID(fixtureID); err != nil {
		log.Fatalf("-fixture: %v", err)
	}

	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", path, err)
	}
	cfg.Logging.File = ""
	if cfg.Logging.Level == "" || cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	logger, _, err := logging.SetupLogger(&cfg.Logging, "track-once")
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}

	client, err := provider.NewClient(provider.ConfigFrom(cfg.Provider, cfg.Redis), provider.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create provider client: %v", err)
	}

	svc := tracking.NewService(client,
		tracking.WithBookmakers(enums.DefaultBookmakerTable().WithOverrides(cfg.Tracking.BookmakerIDs)),
		tracking.WithDefaults(cfg.Tracking.DefaultBookmaker, cfg.Tracking.Capital, cfg.Tracking.KellyCap),
		tracking.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := svc.Track(ctx, tracking.Request{FixtureID: fixtureID, Options: options, Bookmaker: bookmaker})
	if err != nil {
		log.Fatalf("Tracking failed: %v", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatalf("Failed to encode tracking: %v", err)
		}
		return
	}
	printSummary(res)
	if res.Failed() {
		os.Exit(1)
	}
}

func printSummary(res *tracking.Tracking) {
	if res.Failed() {
		fmt.Printf("❌ %s: %s\n", res.Error, res.Message)
		return
	}

	m := res.Match
	fmt.Printf("%s %d - %d %s  [%s %d']\n",
		m.Teams.Home.Name, m.Score.Home, m.Score.Away, m.Teams.Away.Name, m.Status, m.Minute())
	fmt.Printf("Bookmaker: %s (id %d), odds feed: %s\n\n", res.Bookmaker, res.BookmakerID, res.OddsFeed)

	for _, o := range res.Options {
		fmt.Printf("%-28s %-8s %5.2f → %5.2f (%s)  p=%d%% %s  stake %.0f\n",
			o.Phrase, o.CurrentStatus, o.OriginalOdds, o.CurrentOdds, o.OddsSource,
			o.DynamicProbability, o.ProbabilityTrend, o.SuggestedStake.Stake)
	}

	if len(res.Hedging) > 0 {
		fmt.Println("\nHedging:")
		for _, h := range res.Hedging {
			fmt.Printf("  %s → %s @ %.2f (%s), stake %.0f\n", h.OriginalBet, h.HedgeBet, h.CurrentOdds, h.OddsSource, h.HedgeStake)
		}
	}

	for _, w := range res.Warnings {
		fmt.Printf("⚠️  %s\n", w)
	}
	if res.Verdict != nil {
		fmt.Printf("\n%s (avg %d%%)\n", res.Verdict.Message, res.Verdict.AvgProbability)
	}
}
