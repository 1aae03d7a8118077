package normalize

import "fmt"

// Status is the lifecycle state of a Job.
type Status int

// Job states. Succeeded and Failed are terminal.
const (
	Pending Status = iota
	Running
	Succeeded
	Failed
)

// String returns the lowercase state name.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Job is one clip to normalize. A Succeeded job has its Destination on disk
// and no Source; a Failed job has its Source and no Destination.
type Job struct {
	Source      string
	Destination string
	Status      Status
	Err         error
	PeakDBFS    float64 // source peak level
	GainDB      float64 // applied gain
}

// Stats counts jobs by status.
type Stats struct {
	Pending   int
	Running   int
	Succeeded int
	Failed    int
}

// Total returns the number of submitted jobs.
func (s Stats) Total() int {
	return s.Pending + s.Running + s.Succeeded + s.Failed
}
