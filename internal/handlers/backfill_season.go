package handlers

import (
	"context"

	"github.com/cockroachdb/errors"

	"sportsync/ingestion/internal/backfill"
	"sportsync/ingestion/internal/jobs"
)

// backfillSeason assesses league seasons and scrapes the incomplete ones. A
// job scoped to a competition and season handles that pair only; otherwise
// the configured leagues and season range are walked.
type backfillSeason struct {
	deps         *Deps
	orchestrator *backfill.Orchestrator
}

func (h *backfillSeason) Run(ctx context.Context, task jobs.Task) (jobs.Report, error) {
	var report jobs.Report

	if task.CompetitionCode != "" && task.SeasonYear > 0 {
		if !SupportedLeague(task.CompetitionCode) {
			return report, errors.Wrapf(ErrUnsupportedLeague, "%q", task.CompetitionCode)
		}

		pair := h.orchestrator.RunPair(ctx, task.CompetitionCode, task.SeasonYear, false)
		return reportPair(report, pair)
	}

	leagues := h.deps.LeagueCodes
	if task.CompetitionCode != "" {
		leagues = []string{task.CompetitionCode}
	}
	from, to := h.deps.BackfillFrom, h.deps.BackfillTo
	if task.SeasonYear > 0 {
		from, to = task.SeasonYear, task.SeasonYear
	}

	summary, err := h.orchestrator.Run(ctx, leagues, from, to, false)
	if err != nil {
		return report, err
	}

	report.Count("pairs", len(summary.Pairs))
	report.Count("scraped", summary.Scraped)
	report.Count("skipped", summary.Skipped)
	report.Count("partial", summary.Partial)
	report.Count("failed", summary.Failed)
	for _, p := range summary.Pairs {
		if p.Audit != nil {
			report.Count("fixtures_upserted", p.Audit.FixturesUpserted)
			report.Count("deep_hits", p.Audit.DeepHits)
		}
	}
	for _, code := range summary.Unsupported {
		report.Notef("unsupported=%s", code)
	}

	if summary.Failed > 0 || summary.Partial > 0 {
		return report, errors.Newf("backfill incomplete: %s", summary.Summary())
	}
	return report, nil
}

func reportPair(report jobs.Report, pair backfill.PairResult) (jobs.Report, error) {
	if pair.Err != nil {
		return report, pair.Err
	}

	if pair.Health != nil {
		report.Notef("status=%s", pair.Health.Status)
	}
	if pair.Skipped() {
		report.Count("skipped", 1)
		return report, nil
	}

	report.Notef("mode=%s", pair.Mode)
	if a := pair.Audit; a != nil {
		report.Count("fixtures_found", a.FixturesFound)
		report.Count("fixtures_upserted", a.FixturesUpserted)
		report.Count("deep_attempts", a.DeepAttempts)
		report.Count("deep_hits", a.DeepHits)
		report.Count("transfer_rows", a.TransferRows)
		report.Count("season_stat_rows", a.SeasonStatRows)
		report.Count("event_errors", a.EventErrors)
		if len(a.Errors) > 0 {
			return report, errors.Newf("season scrape incomplete: %s", a.Errors[0])
		}
	}
	return report, nil
}
