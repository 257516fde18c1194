package jobs

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"sportsync/ingestion/internal/models"
)

// memStore mirrors the conditional semantics of the Postgres store
type memStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*models.Job
	runs   []*models.JobRun
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, jobs: make(map[int64]*models.Job)}
}

func (s *memStore) put(job *models.Job) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == 0 {
		job.ID = s.nextID
	}
	if job.ID >= s.nextID {
		s.nextID = job.ID + 1
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = DefaultMaxAttempts
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return job
}

func (s *memStore) snapshot(id int64) *models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

func (s *memStore) Insert(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	job.ID = s.nextID
	s.nextID++
	cp := *job
	s.jobs[job.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *memStore) Get(ctx context.Context, id int64) (*models.Job, error) {
	if j := s.snapshot(id); j != nil {
		return j, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) List(ctx context.Context) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *memStore) ListByKind(ctx context.Context, provider string, jobType models.JobType) ([]*models.Job, error) {
	all, _ := s.List(ctx)
	var out []*models.Job
	for _, j := range all {
		if j.Provider == provider && j.JobType == jobType {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *memStore) Delete(ctx context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.jobs[id]; ok {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Reseed(ctx context.Context, id int64, rule string, priority int, now time.Time) (models.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return "", ErrNotFound
	}
	j.ScheduleRule = rule
	j.Priority = priority
	j.LastError = sql.NullString{}
	if j.Status != models.JobPaused && j.Status != models.JobRunning {
		j.Status = models.JobPending
		j.NextRunAt = sql.NullTime{Time: now, Valid: true}
		j.Attempts = 0
		j.LeaseExpiresAt = sql.NullTime{}
		j.LeaseOwner = sql.NullString{}
	}
	return j.Status, nil
}

func (s *memStore) RecoverStaleLeases(ctx context.Context, now time.Time) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if j.LeaseExpired(now) {
			cp := *j
			out = append(out, &cp)
			j.Status = models.JobPending
			j.LeaseExpiresAt = sql.NullTime{}
			j.LeaseOwner = sql.NullString{}
		}
	}
	return out, nil
}

func (s *memStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	all, _ := s.List(ctx)
	var due []*models.Job
	for _, j := range all {
		if j.IsDue(now) {
			due = append(due, j)
		}
	}
	sort.SliceStable(due, func(a, b int) bool {
		if due[a].Priority != due[b].Priority {
			return due[a].Priority < due[b].Priority
		}
		return due[a].NextRunAt.Time.Before(due[b].NextRunAt.Time)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memStore) Claim(ctx context.Context, id int64, owner string, now, leaseUntil time.Time) (*models.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || !j.IsDue(now) {
		return nil, false, nil
	}
	j.Status = models.JobRunning
	j.LeaseExpiresAt = sql.NullTime{Time: leaseUntil, Valid: true}
	j.LeaseOwner = sql.NullString{String: owner, Valid: true}
	j.LastRunAt = sql.NullTime{Time: now, Valid: true}
	cp := *j
	return &cp, true, nil
}

func (s *memStore) Complete(ctx context.Context, id int64, owner string, t models.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != models.JobRunning || j.LeaseOwner.String != owner {
		return false, nil
	}
	j.Status = t.Status
	j.NextRunAt = t.NextRunAt
	j.Attempts = t.Attempts
	j.LastError = t.LastError
	j.LeaseExpiresAt = sql.NullTime{}
	j.LeaseOwner = sql.NullString{}
	return true, nil
}

func (s *memStore) Pause(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = models.JobPaused
	j.LeaseExpiresAt = sql.NullTime{}
	j.LeaseOwner = sql.NullString{}
	return nil
}

func (s *memStore) Resume(ctx context.Context, id int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != models.JobPaused {
		return ErrInvalidTransition
	}
	j.Status = models.JobPending
	j.NextRunAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

func (s *memStore) Retry(ctx context.Context, id int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status != models.JobFailed {
		return ErrInvalidTransition
	}
	j.Status = models.JobPending
	j.Attempts = 0
	j.LastError = sql.NullString{}
	j.NextRunAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

func (s *memStore) RunNow(ctx context.Context, id int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = models.JobPending
	j.NextRunAt = sql.NullTime{Time: now, Valid: true}
	j.LeaseExpiresAt = sql.NullTime{}
	j.LeaseOwner = sql.NullString{}
	j.LastError = sql.NullString{}
	return nil
}

func (s *memStore) StartRun(ctx context.Context, jobID int64, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := &models.JobRun{ID: int64(len(s.runs) + 1), JobID: jobID, StartedAt: startedAt}
	s.runs = append(s.runs, run)
	return run.ID, nil
}

func (s *memStore) FinishRun(ctx context.Context, runID int64, res models.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := s.runs[runID-1]
	if run.FinishedAt.Valid {
		return nil
	}
	run.FinishedAt = sql.NullTime{Time: res.FinishedAt, Valid: true}
	run.ExitStatus = sql.NullString{String: string(res.ExitStatus), Valid: true}
	run.RuntimeMS = sql.NullInt64{Int64: res.Runtime.Milliseconds(), Valid: true}
	run.OutputText = sql.NullString{String: res.Output, Valid: res.Output != ""}
	run.ErrorText = sql.NullString{String: res.Error, Valid: res.Error != ""}
	return nil
}

func (s *memStore) ListRuns(ctx context.Context, jobID int64, limit int) ([]*models.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.JobRun
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.runs[i].JobID == jobID {
			cp := *s.runs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) runsFor(jobID int64) []*models.JobRun {
	runs, _ := s.ListRuns(context.Background(), jobID, 1000)
	return runs
}
