// Package pipeline mirrors the backend pipeline job state and manages
// the polling loop that keeps the mirror fresh.
package pipeline

// JobType identifies a backend pipeline stage.
type JobType string

const (
	JobAcquisition       JobType = "acquisition"
	JobEvaluation        JobType = "evaluation"
	JobMessageGeneration JobType = "message_generation"
)

// JobStatus is the lifecycle state of the current backend job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Status is the raw job state reported by GET /pipeline/status.
// Both fields are empty when the backend has no job yet (it reports
// jobType null / status "idle" in that case).
type Status struct {
	JobType JobType   `json:"jobType"`
	Status  JobStatus `json:"status"`
}

// IsActive reports whether the pipeline is currently running. Unknown
// statuses (including "idle" and empty) count as inactive.
func (s Status) IsActive() bool {
	return s.Status == StatusRunning
}

// StepStatus is the display state of a single progress step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
)

// Step is one of the four derived progress stages.
type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

var stepNames = [4]string{"Scraping", "AI Evaluation", "Message Generation", "Ready for Review"}

// DeriveSteps computes the four-stage progress view from the raw job
// state. It is a pure function: steps are never fetched from the
// backend, only derived.
func DeriveSteps(s Status) []Step {
	steps := make([]Step, len(stepNames))
	for i, name := range stepNames {
		steps[i] = Step{Name: name, Status: StepPending}
	}

	switch s.JobType {
	case JobAcquisition:
		switch s.Status {
		case StatusRunning:
			steps[0].Status = StepRunning
		case StatusCompleted:
			steps[0].Status = StepCompleted
		}
		// pending and failed leave the first step pending

	case JobEvaluation:
		steps[0].Status = StepCompleted
		switch s.Status {
		case StatusRunning:
			steps[1].Status = StepRunning
		case StatusCompleted:
			steps[1].Status = StepCompleted
		}

	case JobMessageGeneration:
		steps[0].Status = StepCompleted
		steps[1].Status = StepCompleted
		switch s.Status {
		case StatusRunning, StatusFailed:
			// a failed generation keeps the running-state snapshot
			steps[2].Status = StepRunning
		case StatusCompleted:
			steps[2].Status = StepCompleted
			steps[3].Status = StepCompleted
		}
	}

	return steps
}

// ShouldStop reports whether the job state is terminal for this session:
// polling stops and is not resumed automatically.
func ShouldStop(s Status) bool {
	if s.JobType == JobMessageGeneration && (s.Status == StatusCompleted || s.Status == StatusFailed) {
		return true
	}
	if (s.JobType == JobAcquisition || s.JobType == JobEvaluation) && s.Status == StatusFailed {
		return true
	}
	return false
}
