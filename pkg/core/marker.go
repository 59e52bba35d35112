package core

import (
	"context"
	"strings"
)

// StoryLookback bounds how many stories of a task are searched for a marker.
const StoryLookback = 200

// Tracker is the task tracker API used by the synchronizer
type Tracker interface {
	ListStories(ctx context.Context, taskID string, limit int) ([]Comment, error)
	CreateStory(ctx context.Context, taskID, text string, pinned bool) (Comment, error)
	DeleteStory(ctx context.Context, storyID string) error
	SetCompleted(ctx context.Context, taskID string, completed bool) error
	TaskProjects(ctx context.Context, taskID string) ([]Project, error)
	ProjectSections(ctx context.Context, projectID string) ([]Section, error)
	AddTaskToSection(ctx context.Context, sectionID, taskID string) error
}

// EmbedMarker appends marker on its own line to body. An empty marker leaves body unchanged.
func EmbedMarker(body, marker string) string {
	if marker == "" {
		return body
	}
	return body + "\n" + marker + "\n"
}

// HasMarker reports whether one of the lines of text is exactly marker.
func HasMarker(text, marker string) bool {
	if marker == "" {
		return false
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == marker {
			return true
		}
	}
	return false
}

// FindComment returns the oldest story of the task carrying marker, or nil if there is none
// within the first StoryLookback stories.
func (s *Synchronizer) FindComment(ctx context.Context, taskID, marker string) (*Comment, error) {
	stories, err := s.tracker.ListStories(ctx, taskID, StoryLookback)
	if err != nil {
		return nil, &TransportError{Op: "list stories of task", ID: taskID, Err: err}
	}

	for i := range stories {
		if HasMarker(stories[i].Text, marker) {
			return &stories[i], nil
		}
	}
	return nil, nil
}

// AddComment posts body to the task with marker embedded.
// A failure is logged and returned so the caller can record it and move on.
func (s *Synchronizer) AddComment(ctx context.Context, taskID, marker, body string, pinned bool) (*Comment, error) {
	comment, err := s.tracker.CreateStory(ctx, taskID, EmbedMarker(body, marker), pinned)
	if err != nil {
		s.log.Errorf("Failed to add comment to task %s: %v", taskID, err)
		return nil, &TransportError{Op: "create story on task", ID: taskID, Err: err}
	}

	s.log.Infof("Added comment %s to task %s", comment.ID, taskID)
	return &comment, nil
}

// RemoveComment deletes the story carrying marker and returns it.
// It returns nil when the task has no such story.
func (s *Synchronizer) RemoveComment(ctx context.Context, taskID, marker string) (*Comment, error) {
	comment, err := s.FindComment(ctx, taskID, marker)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		s.log.Infof("No comment with marker %q on task %s", marker, taskID)
		return nil, nil
	}

	if err := s.tracker.DeleteStory(ctx, comment.ID); err != nil {
		s.log.Errorf("Failed to delete comment %s from task %s: %v", comment.ID, taskID, err)
		return nil, &TransportError{Op: "delete story", ID: comment.ID, Err: err}
	}

	s.log.Infof("Removed comment %s from task %s", comment.ID, taskID)
	return comment, nil
}
