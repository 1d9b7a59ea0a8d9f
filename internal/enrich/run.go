package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/internal/tabular"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

// PeopleDefaultKeys are the fields projected out of people enrichment
// results. People keys resolve directly by vendor field name.
var PeopleDefaultKeys = []string{"firstName", "lastName", "jobTitle", "companyName", "email", "phones", "linkedin"}

// Runner drives one enrichment batch end to end: payload construction,
// submission, polling, field extraction and merge. One batch runs at a time
// per session; the Runner holds no cross-batch state.
type Runner struct {
	Client       surfe.Client
	PollInterval time.Duration
	PollTimeout  time.Duration

	// OnProgress, when set, receives poll progress for display.
	OnProgress func(attempt int, status *surfe.EnrichmentStatus)
}

// Result summarizes a completed enrichment run. The table passed in has been
// extended with the enriched_<key> columns.
type Result struct {
	JobID     string       `json:"job_id"`
	Submitted int          `json:"submitted"`
	Skipped   int          `json:"skipped"`
	Returned  int          `json:"returned"`
	Stats     []FieldStats `json:"stats"`
}

// EnrichCompanies runs a company enrichment batch over the table's lookup
// column and merges the selected data points back as new columns.
func (r *Runner) EnrichCompanies(ctx context.Context, t *tabular.Table, column string, keys []string) (*Result, error) {
	keys = ValidKeys(keys)
	if len(keys) == 0 {
		keys = DefaultKeys
	}

	plan, err := BuildCompanyBatch(t, column)
	if err != nil {
		return nil, err
	}

	job, err := r.Client.StartCompanyEnrichment(ctx, plan.Items)
	if err != nil {
		return nil, err
	}
	zap.L().Info("enrichment job started",
		zap.String("job_id", job.ID),
		zap.Int("items", len(plan.Items)),
		zap.Int("skipped", plan.Skipped),
	)

	status, err := surfe.PollCompanyEnrichment(ctx, r.Client, job.ID, r.pollOptions()...)
	if err != nil {
		return nil, err
	}

	extracted := ExtractEntities(status.Companies, keys)
	stats, err := Merge(t, column, plan, extracted, keys)
	if err != nil {
		return nil, err
	}

	return &Result{
		JobID:     job.ID,
		Submitted: len(plan.Items),
		Skipped:   plan.Skipped,
		Returned:  len(extracted),
		Stats:     stats,
	}, nil
}

// EnrichPeople runs a people enrichment batch over a LinkedIn profile URL
// column. Keys default to PeopleDefaultKeys and resolve directly by vendor
// field name.
func (r *Runner) EnrichPeople(ctx context.Context, t *tabular.Table, column string, keys []string) (*Result, error) {
	if len(keys) == 0 {
		keys = PeopleDefaultKeys
	}

	plan, err := BuildPeopleBatch(t, column)
	if err != nil {
		return nil, err
	}

	job, err := r.Client.StartPeopleEnrichment(ctx, plan.Items)
	if err != nil {
		return nil, err
	}
	zap.L().Info("people enrichment job started",
		zap.String("job_id", job.ID),
		zap.Int("items", len(plan.Items)),
	)

	status, err := surfe.PollPeopleEnrichment(ctx, r.Client, job.ID, r.pollOptions()...)
	if err != nil {
		return nil, err
	}

	extracted := ExtractEntities(status.People, keys)
	stats, err := Merge(t, column, plan, extracted, keys)
	if err != nil {
		return nil, err
	}

	return &Result{
		JobID:     job.ID,
		Submitted: len(plan.Items),
		Skipped:   plan.Skipped,
		Returned:  len(extracted),
		Stats:     stats,
	}, nil
}

func (r *Runner) pollOptions() []surfe.PollOption {
	var opts []surfe.PollOption
	if r.PollInterval > 0 {
		opts = append(opts, surfe.WithPollInterval(r.PollInterval))
	}
	if r.PollTimeout > 0 {
		opts = append(opts, surfe.WithPollTimeout(r.PollTimeout))
	}
	if r.OnProgress != nil {
		opts = append(opts, surfe.WithPollProgress(r.OnProgress))
	}
	return opts
}
