// Command syncctl is the operator CLI for the ingestion job scheduler.
//
// Usage:
//
//	syncctl migrate
//	syncctl seed
//	syncctl dispatch --lease 900
//	syncctl backfill --from 2018 --to 2024 --league eng.1 --dry-run
//	syncctl health --league eng.1 --season 2023
//	syncctl jobs list
//	syncctl jobs pause 3
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"sportsync/ingestion/internal/app"
	"sportsync/ingestion/internal/backfill"
	"sportsync/ingestion/internal/config"
	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	root := &cobra.Command{
		Use:           "syncctl",
		Short:         "Operate the sports data ingestion scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(dispatchCmd())
	root.AddCommand(backfillCmd())
	root.AddCommand(healthCmd())
	root.AddCommand(jobsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// operator is the principal local commands run as
func operator() jobs.Principal {
	name := "syncctl"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = "syncctl@" + u.Username
	}
	return jobs.Principal{Name: name, Elevated: true}
}

// run loads config, wires the app and calls fn with a signal-aware context.
// migrate forces the schema migration regardless of AUTO_MIGRATE.
func run(migrate bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if migrate {
		cfg.AutoMigrate = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(true, func(ctx context.Context, a *app.App) error {
				fmt.Println("schema up to date")
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reconcile the job table with the built-in catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app.App) error {
				report, err := a.Console.SeedCatalog(ctx, operator())
				if err != nil {
					return err
				}
				fmt.Println(report.Summary())
				return nil
			})
		},
	}
}

func dispatchCmd() *cobra.Command {
	var lease int
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Claim and run at most one due job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app.App) error {
				outcome, err := a.Console.DispatchOnce(ctx, operator(), lease)
				if err != nil {
					return err
				}
				fmt.Println(outcome.Summary())
				if outcome.Status == jobs.OutcomeFailed {
					return errors.New("job failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&lease, "lease", 900, "Lease duration in seconds")
	return cmd
}

func backfillCmd() *cobra.Command {
	var (
		from, to int
		leagues  []string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Assess league seasons and scrape the incomplete ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app.App) error {
				if len(leagues) == 0 {
					leagues = a.Config.BackfillLeagues
				}
				if from == 0 {
					from = a.Config.BackfillFromSeason
				}
				if to == 0 {
					to = a.Config.BackfillToSeason
				}

				summary, err := a.Orchestrator.Run(ctx, leagues, from, to, dryRun)
				if summary != nil {
					printPairs(summary.Pairs)
					for _, code := range summary.Unsupported {
						fmt.Printf("skipped unsupported league %s\n", code)
					}
					fmt.Println(summary.Summary())
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "First season year (default BACKFILL_FROM_SEASON)")
	cmd.Flags().IntVar(&to, "to", 0, "Last season year (default BACKFILL_TO_SEASON)")
	cmd.Flags().StringSliceVar(&leagues, "league", nil, "League code, repeatable (default BACKFILL_LEAGUES)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Assess only, do not scrape")
	return cmd
}

func healthCmd() *cobra.Command {
	var (
		league string
		season int
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Report how complete a league season is",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app.App) error {
				h, err := a.Assessor.Assess(ctx, league, season)
				if err != nil {
					return err
				}
				fmt.Printf("%s %d: %s (fixtures=%d deep=%d platinum=%d)\n",
					h.LeagueCode, h.SeasonYear, h.Status, h.FixtureCount, h.DeepDataCount, h.PlatinumDataCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&league, "league", "", "League code, e.g. eng.1")
	cmd.Flags().IntVar(&season, "season", 0, "Season year")
	_ = cmd.MarkFlagRequired("league")
	_ = cmd.MarkFlagRequired("season")
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and operate on jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(false, func(ctx context.Context, a *app.App) error {
				list, err := a.Console.Jobs(ctx, operator())
				if err != nil {
					return err
				}
				printJobs(list)
				return nil
			})
		},
	})

	var limit int
	runs := &cobra.Command{
		Use:   "runs <id>",
		Short: "Show a job's recent runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(false, func(ctx context.Context, a *app.App) error {
				list, err := a.Console.Runs(ctx, operator(), id, limit)
				if err != nil {
					return err
				}
				printRuns(list)
				return nil
			})
		},
	}
	runs.Flags().IntVar(&limit, "limit", 20, "Max rows")
	cmd.AddCommand(runs)

	for _, action := range []jobs.Action{jobs.ActionPause, jobs.ActionResume, jobs.ActionRetry, jobs.ActionRunNow} {
		cmd.AddCommand(actionCmd(action))
	}
	return cmd
}

func actionCmd(action jobs.Action) *cobra.Command {
	use := string(action)
	if action == jobs.ActionRunNow {
		use = "run-now"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Apply %s to a job", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(false, func(ctx context.Context, a *app.App) error {
				p := operator()
				token, err := a.Console.IssueToken(ctx, p, action, id)
				if err != nil {
					return err
				}
				if err := a.Console.Perform(ctx, p, action, id, token); err != nil {
					return err
				}
				fmt.Printf("job %d: %s applied\n", id, action)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf("invalid job id %q", s)
	}
	return id, nil
}

func printJobs(list []*models.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPRIORITY\tSCHEDULE\tNEXT RUN\tATTEMPTS\tLAST ERROR")
	for _, j := range list {
		next := "-"
		if j.NextRunAt.Valid {
			next = j.NextRunAt.Time.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%d/%d\t%s\n",
			j.ID, j.JobType, j.Status, j.Priority, j.ScheduleRule, next,
			j.Attempts, j.MaxAttempts, clip(j.LastError.String, 60))
	}
	w.Flush()
}

func printRuns(list []*models.JobRun) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tRUNTIME\tDETAIL")
	for _, r := range list {
		status := "running"
		if r.ExitStatus.Valid {
			status = r.ExitStatus.String
		}
		runtime := "-"
		if r.RuntimeMS.Valid {
			runtime = (time.Duration(r.RuntimeMS.Int64) * time.Millisecond).String()
		}
		detail := r.OutputText.String
		if r.ErrorText.Valid {
			detail = r.ErrorText.String
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.UTC().Format(time.RFC3339), status, runtime, clip(detail, 80))
	}
	w.Flush()
}

func printPairs(pairs []backfill.PairResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEAGUE\tSEASON\tHEALTH\tACTION\tRESULT")
	for _, p := range pairs {
		health, action, result := "-", "skip", "ok"
		if p.Health != nil {
			health = string(p.Health.Status)
		}
		if p.Mode != "" {
			action = string(p.Mode)
		}
		switch {
		case p.Err != nil:
			result = p.Err.Error()
		case p.Audit != nil:
			result = p.Audit.Summary()
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", p.LeagueCode, p.SeasonYear, health, action, result)
	}
	w.Flush()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
