// Command societysim runs the micro-society simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/micro-society/internal/agents"
	"github.com/talgya/micro-society/internal/api"
	"github.com/talgya/micro-society/internal/config"
	"github.com/talgya/micro-society/internal/engine"
	"github.com/talgya/micro-society/internal/persistence"
)

var version = "0.1.0-dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "societysim",
		Short: "Agent-based micro-society simulation",
		Long: `societysim evolves a population of individuals through rounds of elite
policy voting, social and economic events, taxation, sanctions, learning,
and class mobility, and reports how inequality and ideology shift over time.`,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newInspectCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("societysim version %s\n", version)
		},
	}
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")

			cfg := config.Default()
			if path != "" {
				var err error
				cfg, err = config.Load(path)
				if err != nil {
					return err
				}
			}

			failures := cfg.Validate()
			if len(failures) > 0 {
				for _, f := range failures {
					fmt.Fprintln(os.Stderr, "invalid:", f)
				}
				return fmt.Errorf("%d validation failure(s)", len(failures))
			}
			fmt.Println("config ok")
			return nil
		},
	}
	cmd.Flags().String("config", "", "Path to YAML config file")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a saved run",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			eventCount, _ := cmd.Flags().GetInt("events")

			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			lastRound, err := db.GetMeta("last_round")
			if err != nil {
				return fmt.Errorf("no saved run in %s: %w", dbPath, err)
			}
			seed, _ := db.GetMeta("seed")

			snap, err := db.LatestSnapshot()
			if err != nil {
				return err
			}

			fmt.Printf("Run: %d members, %s rounds, seed %s\n",
				len(snap.Agents), lastRound, seed)
			fmt.Printf("Final equality: %.3f  avg wealth: %.3f  avg power: %.3f\n",
				snap.Equality, snap.AverageWealth, snap.AveragePower)
			fmt.Printf("Elite: %d members\n", len(snap.Elite))
			fmt.Printf("Levers: competition %.2f  care %.2f  tax %.2f  bias %.2f  sanction %.2f\n",
				snap.Levers.CompetitionReward, snap.Levers.CareReward,
				snap.Levers.TaxRedistribution, snap.Levers.AttributionBias,
				snap.Levers.SocialSanction)

			events, err := db.RecentEvents(eventCount)
			if err != nil {
				return err
			}
			if len(events) > 0 {
				fmt.Printf("Last %d events:\n", len(events))
				for _, e := range events {
					fmt.Printf("  [%d] %s: %s\n", e.Round, e.Type, e.Description)
				}
			}
			return nil
		},
	}
	cmd.Flags().String("db", "society.db", "SQLite path of the saved run")
	cmd.Flags().Int("events", 10, "Number of recent events to show")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			rounds, _ := cmd.Flags().GetInt("rounds")
			seed, _ := cmd.Flags().GetInt64("seed")
			dbPath, _ := cmd.Flags().GetString("db")
			serve, _ := cmd.Flags().GetBool("serve")
			port, _ := cmd.Flags().GetInt("port")
			speed, _ := cmd.Flags().GetFloat64("speed")

			cfg := config.Default()
			if cfgPath != "" {
				var err error
				cfg, err = config.Load(cfgPath)
				if err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("rounds") {
				cfg.MaxRounds = rounds
			}
			if cmd.Flags().Changed("seed") {
				cfg.RandomSeed = seed
			}

			sim, err := engine.NewSimulation(cfg)
			if err != nil {
				return err
			}

			var db *persistence.DB
			if dbPath != "" {
				if dir := filepath.Dir(dbPath); dir != "." {
					os.MkdirAll(dir, 0755)
				}
				db, err = persistence.Open(dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				slog.Info("database opened", "path", dbPath)
			}

			if serve {
				return runServed(sim, db, port, speed)
			}
			return runBatch(sim, db)
		},
	}
	cmd.Flags().String("config", "", "Path to YAML config file")
	cmd.Flags().Int("rounds", 0, "Override total rounds")
	cmd.Flags().Int64("seed", 0, "Override random seed")
	cmd.Flags().String("db", "", "SQLite path for saving the run")
	cmd.Flags().Bool("serve", false, "Pace rounds in real time and serve the HTTP API")
	cmd.Flags().Int("port", 8080, "HTTP API port (with --serve)")
	cmd.Flags().Float64("speed", 1.0, "Rounds per second (with --serve)")
	return cmd
}

// runBatch advances to the final round as fast as possible, then saves and
// prints the summary.
func runBatch(sim *engine.Simulation, db *persistence.DB) error {
	if err := sim.Run(nil); err != nil {
		return err
	}

	if db != nil {
		if err := db.SaveRun(sim); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	printSummary(sim)
	return nil
}

// runServed paces one round per interval, serving the observation API and the
// live feed. Stops at the final round or on SIGINT/SIGTERM.
func runServed(sim *engine.Simulation, db *persistence.DB, port int, speed float64) error {
	hub := api.NewHub()
	go hub.Run()

	runner := engine.NewRunner()
	runner.SetSpeed(speed)
	runner.Interval = time.Second

	adminKey := os.Getenv("SOCIETYSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("SOCIETYSIM_ADMIN_KEY not set, admin POST endpoints disabled")
	}

	server := &api.Server{
		Sim:      sim,
		Runner:   runner,
		DB:       db,
		Hub:      hub,
		Port:     port,
		AdminKey: adminKey,
	}
	server.Start()

	runner.OnRound = func() {
		if sim.CurrentRound() >= sim.Config.MaxRounds {
			runner.Stop()
			return
		}
		if err := sim.Step(); err != nil {
			slog.Error("round failed", "error", err)
			runner.Stop()
			return
		}
		server.BroadcastRound()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		runner.Stop()
	}()

	fmt.Printf("Society is live: %d members, %d rounds ahead.\n",
		len(sim.Society.Agents), sim.Config.MaxRounds)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
	fmt.Println("Running... (Ctrl+C to stop)")

	runner.Run()

	if db != nil {
		slog.Info("final save")
		if err := db.SaveRun(sim); err != nil {
			slog.Error("final save failed", "error", err)
		}
	}

	printSummary(sim)
	return nil
}

func printSummary(sim *engine.Simulation) {
	sum := sim.Summary()
	fmt.Printf("\nRun complete: %d rounds, %d events.\n", sum.TotalRounds, sum.TotalEvents)
	fmt.Printf("Equality:          %.3f -> %.3f (%+.3f)\n",
		sum.InitialEquality, sum.FinalEquality, sum.EqualityChange)
	fmt.Printf("Gender power gap:  %.3f -> %.3f\n", sum.InitialPowerGap, sum.FinalPowerGap)
	fmt.Printf("Gender wealth gap: %.3f -> %.3f\n", sum.InitialWealthGap, sum.FinalWealthGap)
	fmt.Println("Final ideology distribution:")
	for _, ideo := range agents.Ideologies {
		group := sum.FinalIdeology[ideo]
		fmt.Printf("  %s: %d (%.1f%%)\n", ideo, group.Count, group.Percentage*100)
	}
}
