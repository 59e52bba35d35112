package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: fmt.Sprintf(msg, args...)})
}

func (l *recordingLogger) Debugf(msg string, args ...any)   { l.add("debug", msg, args...) }
func (l *recordingLogger) Infof(msg string, args ...any)    { l.add("info", msg, args...) }
func (l *recordingLogger) Warningf(msg string, args ...any) { l.add("warning", msg, args...) }
func (l *recordingLogger) Errorf(msg string, args ...any)   { l.add("error", msg, args...) }

func (l *recordingLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, substr) {
			return true
		}
	}
	return false
}

// fakeTracker keeps tasks in memory. Errors can be injected per task id.
type fakeTracker struct {
	mu        sync.Mutex
	nextID    int
	stories   map[string][]Comment
	completed map[string]bool
	projects  map[string][]Project
	sections  map[string][]Section
	placed    map[string][]string

	failList     map[string]bool
	failCreate   map[string]bool
	failDelete   bool
	failComplete map[string]bool
	failAdd      bool
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		stories:      map[string][]Comment{},
		completed:    map[string]bool{},
		projects:     map[string][]Project{},
		sections:     map[string][]Section{},
		placed:       map[string][]string{},
		failList:     map[string]bool{},
		failCreate:   map[string]bool{},
		failComplete: map[string]bool{},
	}
}

var errBoom = errors.New("boom")

func (f *fakeTracker) ListStories(_ context.Context, taskID string, limit int) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList[taskID] {
		return nil, errBoom
	}
	stories := f.stories[taskID]
	if len(stories) > limit {
		stories = stories[:limit]
	}
	return append([]Comment(nil), stories...), nil
}

func (f *fakeTracker) CreateStory(_ context.Context, taskID, text string, pinned bool) (Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate[taskID] {
		return Comment{}, errBoom
	}
	f.nextID++
	c := Comment{ID: fmt.Sprintf("s%d", f.nextID), Text: text, IsPinned: pinned}
	f.stories[taskID] = append(f.stories[taskID], c)
	return c, nil
}

func (f *fakeTracker) DeleteStory(_ context.Context, storyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errBoom
	}
	for task, stories := range f.stories {
		for i, s := range stories {
			if s.ID == storyID {
				f.stories[task] = append(stories[:i:i], stories[i+1:]...)
				return nil
			}
		}
	}
	return errors.New("story not found")
}

func (f *fakeTracker) SetCompleted(_ context.Context, taskID string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failComplete[taskID] {
		return errBoom
	}
	f.completed[taskID] = completed
	return nil
}

func (f *fakeTracker) TaskProjects(_ context.Context, taskID string) ([]Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[taskID], nil
}

func (f *fakeTracker) ProjectSections(_ context.Context, projectID string) ([]Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sections[projectID], nil
}

func (f *fakeTracker) AddTaskToSection(_ context.Context, sectionID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd {
		return errBoom
	}
	f.placed[taskID] = append(f.placed[taskID], sectionID)
	return nil
}

func TestLinkState(t *testing.T) {
	assert.Equal(t, LinkStateError, LinkState(0, true))
	assert.Equal(t, LinkStateSuccess, LinkState(1, true))
	assert.Equal(t, LinkStateSuccess, LinkState(0, false))
	assert.Equal(t, LinkStateSuccess, LinkState(3, false))
}

func TestEmbedMarker(t *testing.T) {
	assert.Equal(t, "hello\nmarker-1\n", EmbedMarker("hello", "marker-1"))
	assert.Equal(t, "hello", EmbedMarker("hello", ""))
}

func TestHasMarker(t *testing.T) {
	assert.True(t, HasMarker("body\npr-12\n", "pr-12"))
	assert.True(t, HasMarker("body\n  pr-12  ", "pr-12"))
	assert.False(t, HasMarker("body\npr-123\n", "pr-12"))
	assert.False(t, HasMarker("body mentions pr-12 inline", "pr-12"))
	assert.False(t, HasMarker("anything", ""))
}

func TestFindComment(t *testing.T) {
	tracker := newFakeTracker()
	tracker.stories["1"] = []Comment{
		{ID: "a", Text: "unrelated"},
		{ID: "b", Text: "first\nm1\n"},
		{ID: "c", Text: "second\nm1\n"},
	}
	syncer := NewSynchronizer(tracker, &recordingLogger{})

	found, err := syncer.FindComment(context.Background(), "1", "m1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "b", found.ID)

	found, err = syncer.FindComment(context.Background(), "1", "m2")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindCommentBoundedLookback(t *testing.T) {
	tracker := newFakeTracker()
	for i := 0; i < StoryLookback; i++ {
		tracker.stories["1"] = append(tracker.stories["1"], Comment{ID: fmt.Sprint(i), Text: "noise"})
	}
	tracker.stories["1"] = append(tracker.stories["1"], Comment{ID: "late", Text: "x\nm1\n"})

	found, err := NewSynchronizer(tracker, &recordingLogger{}).FindComment(context.Background(), "1", "m1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFindCommentLookupError(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failList["1"] = true

	found, err := NewSynchronizer(tracker, &recordingLogger{}).FindComment(context.Background(), "1", "m1")
	assert.Nil(t, found)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "1", transportErr.ID)
	assert.ErrorIs(t, err, errBoom)
}

func TestAddCommentsIsIdempotent(t *testing.T) {
	tracker := newFakeTracker()
	syncer := NewSynchronizer(tracker, &recordingLogger{})
	ctx := context.Background()

	first := syncer.AddComments(ctx, []string{"1"}, "pr-7", "Linked PR", true)
	second := syncer.AddComments(ctx, []string{"1"}, "pr-7", "Linked PR", true)

	require.Len(t, first, 1)
	assert.Equal(t, StatusSuccess, first[0].Status)
	require.Len(t, second, 1)
	assert.Equal(t, StatusSkipped, second[0].Status)
	assert.Equal(t, first[0].CommentID, second[0].CommentID)

	require.Len(t, tracker.stories["1"], 1)
	assert.Equal(t, "Linked PR\npr-7\n", tracker.stories["1"][0].Text)
	assert.True(t, tracker.stories["1"][0].IsPinned)
}

func TestAddCommentsWithoutMarker(t *testing.T) {
	tracker := newFakeTracker()
	syncer := NewSynchronizer(tracker, &recordingLogger{})

	syncer.AddComments(context.Background(), []string{"1"}, "", "plain", false)
	syncer.AddComments(context.Background(), []string{"1"}, "", "plain", false)

	require.Len(t, tracker.stories["1"], 2)
	assert.Equal(t, "plain", tracker.stories["1"][0].Text)
}

func TestAddCommentsIsolatesFailures(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failCreate["2"] = true
	tracker.failList["3"] = true
	log := &recordingLogger{}
	syncer := NewSynchronizer(tracker, log)

	outcomes := syncer.AddComments(context.Background(), []string{"1", "2", "3", "4"}, "m", "text", false)

	require.Len(t, outcomes, 4)
	assert.Equal(t, []string{"1", "2", "3", "4"}, []string{outcomes[0].TaskID, outcomes[1].TaskID, outcomes[2].TaskID, outcomes[3].TaskID})
	assert.Equal(t, StatusSuccess, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.NotEmpty(t, outcomes[1].Error)
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.Equal(t, StatusSuccess, outcomes[3].Status)
	assert.True(t, log.has("error", "task 2"))
}

func TestRemoveComments(t *testing.T) {
	tracker := newFakeTracker()
	tracker.stories["1"] = []Comment{{ID: "s1", Text: "hi\nm\n"}}
	syncer := NewSynchronizer(tracker, &recordingLogger{})
	ctx := context.Background()

	outcomes := syncer.RemoveComments(ctx, []string{"1", "2"}, "m")

	require.Len(t, outcomes, 2)
	assert.Equal(t, TaskOutcome{TaskID: "1", Status: StatusSuccess, CommentID: "s1"}, outcomes[0])
	assert.Equal(t, TaskOutcome{TaskID: "2", Status: StatusSkipped}, outcomes[1])

	found, err := syncer.FindComment(ctx, "1", "m")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRemoveCommentsDeleteFailure(t *testing.T) {
	tracker := newFakeTracker()
	tracker.stories["1"] = []Comment{{ID: "s1", Text: "hi\nm\n"}}
	tracker.failDelete = true
	log := &recordingLogger{}

	outcomes := NewSynchronizer(tracker, log).RemoveComments(context.Background(), []string{"1"}, "m")

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.True(t, log.has("error", "s1"))
	assert.Len(t, tracker.stories["1"], 1)
}

func TestCompleteTasks(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failComplete["2"] = true
	syncer := NewSynchronizer(tracker, &recordingLogger{})

	outcomes := syncer.CompleteTasks(context.Background(), []string{"1", "2", "3", "1"}, true)

	require.Len(t, outcomes, 4)
	assert.Equal(t, StatusSuccess, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Equal(t, StatusSuccess, outcomes[2].Status)
	assert.Equal(t, StatusSuccess, outcomes[3].Status)
	assert.True(t, tracker.completed["1"])
	assert.True(t, tracker.completed["3"])
	assert.NotContains(t, tracker.completed, "2")
}

func TestMoveSections(t *testing.T) {
	tracker := newFakeTracker()
	tracker.projects["1"] = []Project{{ID: "p1", Name: "Board"}, {ID: "p2", Name: "Sprint"}}
	tracker.sections["p1"] = []Section{{ID: "s-todo", Name: "To Do"}, {ID: "s-review", Name: "In Review"}}
	tracker.sections["p2"] = []Section{{ID: "s-backlog", Name: "Backlog"}}
	log := &recordingLogger{}
	syncer := NewSynchronizer(tracker, log)

	targets := []MoveTarget{
		{Project: "Board", Section: "In Review"},
		{Project: "Roadmap", Section: "Q3"},
		{Project: "Sprint", Section: "Done"},
	}
	outcomes := syncer.MoveSections(context.Background(), []string{"1"}, targets)

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	require.Len(t, outcomes[0].Targets, 3)
	assert.Equal(t, StatusSuccess, outcomes[0].Targets[0].Status)
	assert.Equal(t, StatusSkipped, outcomes[0].Targets[1].Status)
	assert.Equal(t, StatusFailed, outcomes[0].Targets[2].Status)
	assert.Equal(t, "section not found", outcomes[0].Targets[2].Reason)

	assert.Equal(t, []string{"s-review"}, tracker.placed["1"])
	assert.True(t, log.has("info", `"Roadmap"`))
	assert.True(t, log.has("error", `"Done"`))
}

func TestMoveSectionsProjectNotFound(t *testing.T) {
	tracker := newFakeTracker()
	log := &recordingLogger{}

	outcomes := NewSynchronizer(tracker, log).MoveSections(context.Background(), []string{"1", "2"}, []MoveTarget{{Project: "Board", Section: "Done"}})

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Equal(t, StatusSkipped, outcomes[1].Status)
	assert.Empty(t, tracker.placed)
	assert.False(t, log.has("error", ""))
}

func TestMoveSectionsAddFailure(t *testing.T) {
	tracker := newFakeTracker()
	tracker.projects["1"] = []Project{{ID: "p1", Name: "Board"}}
	tracker.sections["p1"] = []Section{{ID: "s1", Name: "Done"}}
	tracker.failAdd = true

	outcomes := NewSynchronizer(tracker, &recordingLogger{}).MoveSections(context.Background(), []string{"1"}, []MoveTarget{{Project: "Board", Section: "Done"}})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Contains(t, outcomes[0].Targets[0].Reason, "boom")
}

func TestEndToEndExtractAndComment(t *testing.T) {
	refs := ExtractReferences("Asana: https://app.asana.com/0/0/project/111/task/222", "Asana:", nil)
	require.Equal(t, []string{"222"}, TaskIDs(refs))

	tracker := newFakeTracker()
	outcomes := NewSynchronizer(tracker, &recordingLogger{}).AddComments(context.Background(), TaskIDs(refs), "pr-1", "PR opened", false)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "222", outcomes[0].TaskID)
	assert.Len(t, tracker.stories["222"], 1)
}

func TestRunDispatch(t *testing.T) {
	tracker := newFakeTracker()
	tracker.stories["1"] = []Comment{{ID: "old", Text: "x\nm\n"}}
	syncer := NewSynchronizer(tracker, &recordingLogger{})
	ctx := context.Background()

	outcomes, err := syncer.Run(ctx, Config{Action: ActionCompleteTask, IsComplete: true}, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, []TaskOutcome{{TaskID: "1", Status: StatusSuccess}}, outcomes)
	assert.True(t, tracker.completed["1"])

	outcomes, err = syncer.Run(ctx, Config{Action: ActionRemoveComment, CommentID: "m"}, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "old", outcomes[0].CommentID)

	_, err = syncer.Run(ctx, Config{Action: ActionAssertLink}, []string{"1"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}
