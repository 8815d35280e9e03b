package model

// JobStatus represents the status of a fetch job
type JobStatus string

const (
	// JobStatusPending means the job is accepted but not yet running
	JobStatusPending JobStatus = "Pending"

	// JobStatusRunning means the resolver is fetching and merging the rendition
	JobStatusRunning JobStatus = "Running"

	// JobStatusSucceeded means the artifact was published
	JobStatusSucceeded JobStatus = "Succeeded"

	// JobStatusFailed means the job ended without a published artifact
	JobStatusFailed JobStatus = "Failed"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsActive returns true if the job has not reached a terminal state
func (js JobStatus) IsActive() bool {
	return js == JobStatusPending || js == JobStatusRunning
}

// IsFinished returns true if the job is in a terminal state (succeeded or failed)
func (js JobStatus) IsFinished() bool {
	return js == JobStatusSucceeded || js == JobStatusFailed
}

// DeletionState tracks a published artifact through the retention lifecycle
type DeletionState string

const (
	DeletionScheduled DeletionState = "Scheduled"
	DeletionDone      DeletionState = "Deleted"
	DeletionFailed    DeletionState = "DeletionFailed"
)
