package core

// Action names accepted by the action input.
const (
	ActionAssertLink    = "assert-link"
	ActionAddComment    = "add-comment"
	ActionRemoveComment = "remove-comment"
	ActionCompleteTask  = "complete-task"
	ActionMoveSection   = "move-section"
)

// Logger is the subset of *githubactions.Action used for reporting progress
type Logger interface {
	Debugf(msg string, args ...any)
	Infof(msg string, args ...any)
	Warningf(msg string, args ...any)
	Errorf(msg string, args ...any)
}

// TaskReference is a tracker task found in a pull request description
type TaskReference struct {
	TaskID    string
	ProjectID string
	URL       string
}

// Comment represents a tracker story attached to a task
type Comment struct {
	ID       string `json:"gid"`
	Text     string `json:"text"`
	IsPinned bool   `json:"is_pinned"`
}

// Project is a tracker project the task belongs to
type Project struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

// Section is a column/heading inside a project
type Section struct {
	ID   string `json:"gid"`
	Name string `json:"name"`
}

// MoveTarget describes one desired placement of a task
type MoveTarget struct {
	Project string `yaml:"project" json:"project"`
	Section string `yaml:"section" json:"section"`
}

// Status is the result of processing a single task or target
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// TargetOutcome is the result of applying one MoveTarget to a task
type TargetOutcome struct {
	Project string `json:"project"`
	Section string `json:"section"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// TaskOutcome is the result of applying an operation to one task
type TaskOutcome struct {
	TaskID    string          `json:"task"`
	Status    Status          `json:"status"`
	CommentID string          `json:"comment,omitempty"`
	Error     string          `json:"error,omitempty"`
	Targets   []TargetOutcome `json:"targets,omitempty"`
}

// Config represents the GitHub Action configuration
type Config struct {
	AsanaPAT      string
	AsanaBaseURL  string
	Action        string
	TriggerPhrase string
	GitHubToken   string
	LinkRequired  bool
	CommentID     string
	Text          string
	IsPinned      bool
	IsComplete    bool
	Targets       []MoveTarget
}

// PullRequest is the part of a pull request the action works from
type PullRequest struct {
	Number  int
	Body    string
	HeadSHA string
}
