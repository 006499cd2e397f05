// Command propcore is the prop-matching pipeline CLI.
//
// Usage:
//
//	propcore resolve "Nikola Jokic"
//	propcore forecast "Nikola Jokic" --prop points
//	propcore bestline "Nikola Jokic" --prop points --payload odds.json
//	propcore compare "Nikola Jokic" --prop points --payload odds.json
//	propcore evaluate --results results.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/courtside/propcore/internal/cache"
	"github.com/courtside/propcore/internal/config"
	"github.com/courtside/propcore/internal/ledger"
	"github.com/courtside/propcore/internal/odds"
	"github.com/courtside/propcore/internal/props"
	"github.com/courtside/propcore/internal/provider"
	"github.com/courtside/propcore/internal/provider/courtbasic"
	"github.com/courtside/propcore/internal/provider/hoopstats"
	"github.com/courtside/propcore/internal/provider/rosterfeed"
	"github.com/courtside/propcore/internal/resolver"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "propcore",
		Short: "Cross-source player prop pipeline CLI",
	}

	root.AddCommand(resolveCmd())
	root.AddCommand(forecastCmd())
	root.AddCommand(bestlineCmd())
	root.AddCommand(compareCmd())
	root.AddCommand(evaluateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// resolve command
// --------------------------------------------------------------------------

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <player name>",
		Short: "Resolve a player name to a provider identity and game log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, svc *props.Service) error {
				identity, log, err := svc.ResolvePlayer(ctx, args[0])
				if err != nil {
					return err
				}
				logger.Info("player resolved",
					"provider", identity.Provider,
					"id", identity.ProviderID,
					"name", identity.CanonicalName,
					"team", identity.TeamAbbrev,
					"games", len(log.Games))
				return printJSON(struct {
					Identity provider.Identity `json:"identity"`
					Games    []provider.Game   `json:"games"`
				}{identity, log.Games})
			})
		},
	}
}

// --------------------------------------------------------------------------
// forecast command
// --------------------------------------------------------------------------

func forecastCmd() *cobra.Command {
	var prop string
	cmd := &cobra.Command{
		Use:   "forecast <player name>",
		Short: "Produce a weighted forecast for a player prop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, svc *props.Service) error {
				fc, err := svc.Forecast(ctx, args[0], provider.PropType(prop))
				if err != nil {
					return err
				}
				return printJSON(fc)
			})
		},
	}
	cmd.Flags().StringVar(&prop, "prop", "points", "Prop type (points, rebounds, assists, points+rebounds+assists, ...)")
	return cmd
}

// --------------------------------------------------------------------------
// bestline command
// --------------------------------------------------------------------------

func bestlineCmd() *cobra.Command {
	var prop, payloadPath string
	cmd := &cobra.Command{
		Use:   "bestline <player name>",
		Short: "Pick the best bookmaker line from an odds payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(payloadPath)
			if err != nil {
				return fmt.Errorf("read odds payload: %w", err)
			}
			return run(func(ctx context.Context, svc *props.Service) error {
				line, ok, err := svc.BestPropLine(raw, args[0], provider.PropType(prop))
				if err != nil {
					return err
				}
				if !ok {
					logger.Info("no qualifying line", "player", args[0], "prop", prop)
					return nil
				}
				return printJSON(line)
			})
		},
	}
	cmd.Flags().StringVar(&prop, "prop", "points", "Prop type")
	cmd.Flags().StringVar(&payloadPath, "payload", "", "Path to an odds-API event JSON file")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

// --------------------------------------------------------------------------
// compare command
// --------------------------------------------------------------------------

func compareCmd() *cobra.Command {
	var prop, payloadPath string
	cmd := &cobra.Command{
		Use:   "compare <player name>",
		Short: "Run forecast and market lookup side by side and record the prediction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			if payloadPath != "" {
				var err error
				raw, err = os.ReadFile(payloadPath)
				if err != nil {
					return fmt.Errorf("read odds payload: %w", err)
				}
			}
			return run(func(ctx context.Context, svc *props.Service) error {
				cmp, err := svc.Compare(ctx, args[0], provider.PropType(prop), raw)
				if err != nil {
					return err
				}
				if cmp.ForecastErr != nil {
					logger.Warn("forecast branch failed", "error", cmp.ForecastErr)
				}
				if cmp.MarketErr != nil {
					logger.Warn("market branch failed", "error", cmp.MarketErr)
				}
				if cmp.Forecast != nil && cmp.Line != nil {
					logger.Info("comparison",
						"predicted", cmp.Forecast.PredictedValue,
						"line", cmp.Line.Line,
						"edge", cmp.Edge(),
						"bookmaker", cmp.Line.Bookmaker)
				}
				return printJSON(cmp)
			})
		},
	}
	cmd.Flags().StringVar(&prop, "prop", "points", "Prop type")
	cmd.Flags().StringVar(&payloadPath, "payload", "", "Path to an odds-API event JSON file (optional)")
	return cmd
}

// --------------------------------------------------------------------------
// evaluate command
// --------------------------------------------------------------------------

func evaluateCmd() *cobra.Command {
	var resultsPath string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Attach actual outcomes to pending ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(resultsPath)
			if err != nil {
				return fmt.Errorf("read results: %w", err)
			}
			var results map[string]float64
			if err := json.Unmarshal(raw, &results); err != nil {
				return fmt.Errorf("parse results: %w", err)
			}
			return run(func(ctx context.Context, svc *props.Service) error {
				n, err := svc.Evaluate(results)
				if err != nil {
					return err
				}
				logger.Info("evaluation finished", "evaluated", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&resultsPath, "results", "", "Path to a JSON object of ledger id -> actual value")
	_ = cmd.MarkFlagRequired("results")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, dependency wiring, and context cancellation.
func run(fn func(ctx context.Context, svc *props.Service) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var store cache.Store
	if cfg.RedisAddr != "" {
		store = cache.NewRedis(cfg.RedisAddr, "", cfg.RedisDB, logger)
	} else {
		mem := cache.NewMemory(cfg.CacheEnabled)
		mem.StartSweep(5*time.Minute, ctx.Done())
		store = mem
	}

	res := resolver.New(store, logger, buildProviders(cfg)...)

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	oddsCfg := odds.DefaultConfig()
	if len(cfg.BookmakerPriority) > 0 {
		oddsCfg.BookmakerPriority = cfg.BookmakerPriority
	}
	oddsCfg.LowPointsLine = cfg.LowPointsLine

	svc := props.New(res, store, led, logger, props.WithOddsConfig(oddsCfg))
	return fn(ctx, svc)
}

// buildProviders wires adapters in resolution priority order. Base-URL
// overrides are for staging endpoints and tests.
func buildProviders(cfg *config.Config) []provider.Client {
	policy := provider.RetryPolicy{
		MaxRetries:      cfg.RetryMaxAttempts,
		BaseDelay:       cfg.RetryBaseDelay,
		RetryableStatus: provider.DefaultRetryPolicy().RetryableStatus,
	}

	var clients []provider.Client

	hoopOpts := []hoopstats.Option{hoopstats.WithRetryPolicy(policy)}
	if cfg.HoopStatsBaseURL != "" {
		hoopOpts = append(hoopOpts, hoopstats.WithBaseURL(cfg.HoopStatsBaseURL))
	}
	clients = append(clients, hoopstats.NewClient(cfg.HoopStatsRPM, logger, hoopOpts...))

	if cfg.RosterFeedAPIKey != "" {
		feedOpts := []rosterfeed.Option{rosterfeed.WithRetryPolicy(policy)}
		if cfg.RosterFeedBaseURL != "" {
			feedOpts = append(feedOpts, rosterfeed.WithBaseURL(cfg.RosterFeedBaseURL))
		}
		clients = append(clients, rosterfeed.NewClient(cfg.RosterFeedAPIKey, cfg.RosterFeedRPM, logger, feedOpts...))
	}

	basicOpts := []courtbasic.Option{courtbasic.WithRetryPolicy(policy)}
	if cfg.CourtBasicBaseURL != "" {
		basicOpts = append(basicOpts, courtbasic.WithBaseURL(cfg.CourtBasicBaseURL))
	}
	clients = append(clients, courtbasic.New(logger, basicOpts...))

	return clients
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
