package manifest

import "time"

// RunStatus tracks where a merge run ended up.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the merge pipeline.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      RunStatus
	OutputDir   string
	TotalGroups int
	TotalFiles  int
	TotalBytes  int64
	Error       string
}

// Group records which dataset and folder produced a plant id.
type Group struct {
	RunID   string
	GroupID int
	Dataset string
	Folder  string
}

// Artifact links one output image to its source file.
type Artifact struct {
	GroupID    int
	Day        int
	SourcePath string
	OutputName string
	Size       int64
	SHA256     string
}

// RunTotals is written when a run finishes.
type RunTotals struct {
	Groups int
	Files  int
	Bytes  int64
}
