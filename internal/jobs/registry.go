package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"sportsync/ingestion/internal/models"

	"github.com/cockroachdb/errors"
)

// Task is what a handler receives for one claimed job
type Task struct {
	JobID           int64
	Provider        string
	JobType         models.JobType
	SeasonYear      int
	CompetitionCode string
	Payload         json.RawMessage
	Attempt         int
}

// TaskFromJob builds the handler input for a claimed job
func TaskFromJob(job *models.Job) Task {
	t := Task{
		JobID:    job.ID,
		Provider: job.Provider,
		JobType:  job.JobType,
		Payload:  job.Payload,
		Attempt:  job.Attempts + 1,
	}
	if job.SeasonYear.Valid {
		t.SeasonYear = int(job.SeasonYear.Int32)
	}
	if job.CompetitionCode.Valid {
		t.CompetitionCode = job.CompetitionCode.String
	}
	return t
}

// Report is the audit summary a handler returns
type Report struct {
	Counters map[string]int
	Notes    []string
}

// Count adds n to the named counter
func (r *Report) Count(name string, n int) {
	if r.Counters == nil {
		r.Counters = make(map[string]int)
	}
	r.Counters[name] += n
}

// Notef records a formatted note
func (r *Report) Notef(format string, args ...interface{}) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Summary renders counters in a stable order followed by notes
func (r Report) Summary() string {
	keys := make([]string, 0, len(r.Counters))
	for k := range r.Counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+len(r.Notes))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, r.Counters[k]))
	}
	parts = append(parts, r.Notes...)
	return strings.Join(parts, " ")
}

// Handler performs the work for one job type
type Handler interface {
	Run(ctx context.Context, task Task) (Report, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, task Task) (Report, error)

// Run calls f
func (f HandlerFunc) Run(ctx context.Context, task Task) (Report, error) {
	return f(ctx, task)
}

// Registry maps job type tags to handlers. It is built once at startup and
// only read afterwards.
type Registry struct {
	handlers map[models.JobType]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.JobType]Handler)}
}

// Register binds a handler to a known job type
func (r *Registry) Register(jobType models.JobType, h Handler) error {
	if !jobType.IsKnown() {
		return errors.Wrapf(ErrUnknownJobType, "%q", jobType)
	}
	if h == nil {
		return errors.Newf("nil handler for %q", jobType)
	}
	if _, exists := r.handlers[jobType]; exists {
		return errors.Newf("handler already registered for %q", jobType)
	}
	r.handlers[jobType] = h
	return nil
}

// Lookup returns the handler for jobType
func (r *Registry) Lookup(jobType models.JobType) (Handler, bool) {
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types lists registered job types in sorted order
func (r *Registry) Types() []models.JobType {
	out := make([]models.JobType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
