package jobs

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound is returned by a Store when no job has the requested id
	ErrNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a manual operation does not apply
	// to the job's current status
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrDenied is the only error administrative operations return
	ErrDenied = errors.New("denied")

	// ErrUnknownJobType is returned when registering or seeding a tag outside
	// the known set
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrInvalidSchedule is returned for schedule rules that do not parse
	ErrInvalidSchedule = errors.New("invalid schedule rule")
)
