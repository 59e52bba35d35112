package core

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/iter"
)

// Commit status states reported by assert-link.
const (
	LinkStateSuccess = "success"
	LinkStateError   = "error"
)

// LinkState returns the status check state for the number of references found.
func LinkState(found int, linkRequired bool) string {
	if found > 0 || !linkRequired {
		return LinkStateSuccess
	}
	return LinkStateError
}

// Synchronizer applies one action to every referenced task.
// Tasks are processed one at a time in the order given; a failing task
// is recorded in its outcome and never stops the batch.
type Synchronizer struct {
	tracker Tracker
	log     Logger
}

// NewSynchronizer creates a synchronizer over tracker
func NewSynchronizer(tracker Tracker, log Logger) *Synchronizer {
	return &Synchronizer{
		tracker: tracker,
		log:     log,
	}
}

// Run dispatches the configured action over taskIDs. assert-link is not handled
// here because it only reports a commit status.
func (s *Synchronizer) Run(ctx context.Context, cfg Config, taskIDs []string) ([]TaskOutcome, error) {
	switch cfg.Action {
	case ActionAddComment:
		return s.AddComments(ctx, taskIDs, cfg.CommentID, cfg.Text, cfg.IsPinned), nil
	case ActionRemoveComment:
		return s.RemoveComments(ctx, taskIDs, cfg.CommentID), nil
	case ActionCompleteTask:
		return s.CompleteTasks(ctx, taskIDs, cfg.IsComplete), nil
	case ActionMoveSection:
		return s.MoveSections(ctx, taskIDs, cfg.Targets), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, cfg.Action)
	}
}

// AddComments adds the comment to each task. With a marker, tasks that already
// carry a comment with that marker are skipped.
func (s *Synchronizer) AddComments(ctx context.Context, taskIDs []string, marker, text string, pinned bool) []TaskOutcome {
	outcomes := make([]TaskOutcome, 0, len(taskIDs))

	for _, taskID := range taskIDs {
		outcome := TaskOutcome{TaskID: taskID}

		if marker != "" {
			existing, err := s.FindComment(ctx, taskID, marker)
			if err != nil {
				s.log.Errorf("Failed to look up comment on task %s: %v", taskID, err)
				outcomes = append(outcomes, outcome.failed(err))
				continue
			}
			if existing != nil {
				s.log.Infof("Task %s already has comment %s, skipping", taskID, existing.ID)
				outcome.Status = StatusSkipped
				outcome.CommentID = existing.ID
				outcomes = append(outcomes, outcome)
				continue
			}
		}

		comment, err := s.AddComment(ctx, taskID, marker, text, pinned)
		if err != nil {
			outcomes = append(outcomes, outcome.failed(err))
			continue
		}

		outcome.Status = StatusSuccess
		outcome.CommentID = comment.ID
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// RemoveComments deletes the comment carrying marker from each task.
func (s *Synchronizer) RemoveComments(ctx context.Context, taskIDs []string, marker string) []TaskOutcome {
	outcomes := make([]TaskOutcome, 0, len(taskIDs))

	for _, taskID := range taskIDs {
		outcome := TaskOutcome{TaskID: taskID}

		removed, err := s.RemoveComment(ctx, taskID, marker)
		switch {
		case err != nil:
			outcome = outcome.failed(err)
		case removed == nil:
			outcome.Status = StatusSkipped
		default:
			outcome.Status = StatusSuccess
			outcome.CommentID = removed.ID
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// CompleteTasks sets the completion flag of each task.
func (s *Synchronizer) CompleteTasks(ctx context.Context, taskIDs []string, completed bool) []TaskOutcome {
	outcomes := make([]TaskOutcome, 0, len(taskIDs))

	for _, taskID := range taskIDs {
		outcome := TaskOutcome{TaskID: taskID}

		if err := s.tracker.SetCompleted(ctx, taskID, completed); err != nil {
			s.log.Errorf("Failed to set completed=%t on task %s: %v", completed, taskID, err)
			outcomes = append(outcomes, outcome.failed(&TransportError{Op: "update task", ID: taskID, Err: err}))
			continue
		}

		s.log.Infof("Set completed=%t on task %s", completed, taskID)
		outcome.Status = StatusSuccess
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// MoveSections places each task into every target section. The targets of one task
// are applied concurrently and all of them finish before the next task starts.
func (s *Synchronizer) MoveSections(ctx context.Context, taskIDs []string, targets []MoveTarget) []TaskOutcome {
	outcomes := make([]TaskOutcome, 0, len(taskIDs))

	for _, taskID := range taskIDs {
		results := iter.Map(targets, func(target *MoveTarget) TargetOutcome {
			return s.moveToSection(ctx, taskID, *target)
		})

		outcomes = append(outcomes, TaskOutcome{
			TaskID:  taskID,
			Status:  aggregate(results),
			Targets: results,
		})
	}

	return outcomes
}

func (s *Synchronizer) moveToSection(ctx context.Context, taskID string, target MoveTarget) TargetOutcome {
	outcome := TargetOutcome{Project: target.Project, Section: target.Section}

	projects, err := s.tracker.TaskProjects(ctx, taskID)
	if err != nil {
		s.log.Errorf("Failed to get projects of task %s: %v", taskID, err)
		return outcome.failed(err)
	}

	project := findProject(projects, target.Project)
	if project == nil {
		s.log.Infof("Task %s is not in project %q, skipping", taskID, target.Project)
		outcome.Status = StatusSkipped
		outcome.Reason = "project not found"
		return outcome
	}

	sections, err := s.tracker.ProjectSections(ctx, project.ID)
	if err != nil {
		s.log.Errorf("Failed to get sections of project %q: %v", project.Name, err)
		return outcome.failed(err)
	}

	section := findSection(sections, target.Section)
	if section == nil {
		s.log.Errorf("Section %q not found in project %q", target.Section, project.Name)
		outcome.Status = StatusFailed
		outcome.Reason = "section not found"
		return outcome
	}

	if err := s.tracker.AddTaskToSection(ctx, section.ID, taskID); err != nil {
		s.log.Errorf("Failed to move task %s to %q/%q: %v", taskID, project.Name, section.Name, err)
		return outcome.failed(err)
	}

	s.log.Infof("Moved task %s to %q/%q", taskID, project.Name, section.Name)
	outcome.Status = StatusSuccess
	return outcome
}

func findProject(projects []Project, name string) *Project {
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i]
		}
	}
	return nil
}

func findSection(sections []Section, name string) *Section {
	for i := range sections {
		if sections[i].Name == name {
			return &sections[i]
		}
	}
	return nil
}

// aggregate folds target outcomes into a task status: any failure fails the task,
// any success otherwise succeeds it, and all-skipped (or no targets) is a skip.
func aggregate(results []TargetOutcome) Status {
	status := StatusSkipped
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			return StatusFailed
		case StatusSuccess:
			status = StatusSuccess
		}
	}
	return status
}

func (o TaskOutcome) failed(err error) TaskOutcome {
	o.Status = StatusFailed
	o.Error = err.Error()
	return o
}

func (o TargetOutcome) failed(err error) TargetOutcome {
	o.Status = StatusFailed
	o.Reason = err.Error()
	return o
}
