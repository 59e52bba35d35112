package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ksysoev/asana-pr-action/pkg/core"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public Asana REST endpoint
const DefaultBaseURL = "https://app.asana.com/api/1.0"

// pageSize is the largest page the API serves
const pageSize = 100

// Client handles interaction with the Asana API
type Client struct {
	http    *http.Client
	baseURL string
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("asana: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("asana: HTTP %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// NewClient creates a new Asana client authorised with a personal access token
func NewClient(token, baseURL string) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		http:    oauth2.NewClient(ctx, ts),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type nextPage struct {
	Offset string `json:"offset"`
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	NextPage *nextPage       `json:"next_page"`
	Errors   []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// ListStories returns up to limit stories of a task, oldest first
func (c *Client) ListStories(ctx context.Context, taskID string, limit int) ([]core.Comment, error) {
	var stories []core.Comment
	offset := ""

	for len(stories) < limit {
		q := url.Values{}
		q.Set("opt_fields", "text,is_pinned")
		q.Set("limit", strconv.Itoa(min(pageSize, limit-len(stories))))
		if offset != "" {
			q.Set("offset", offset)
		}

		var page []core.Comment
		env, err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID)+"/stories?"+q.Encode(), nil, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list stories of task %s: %w", taskID, err)
		}

		stories = append(stories, page...)
		if env.NextPage == nil || env.NextPage.Offset == "" || len(page) == 0 {
			break
		}
		offset = env.NextPage.Offset
	}

	if len(stories) > limit {
		stories = stories[:limit]
	}
	return stories, nil
}

// CreateStory adds a comment to a task
func (c *Client) CreateStory(ctx context.Context, taskID, text string, pinned bool) (core.Comment, error) {
	body := map[string]any{
		"text":      text,
		"is_pinned": pinned,
	}

	var story core.Comment
	if _, err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(taskID)+"/stories", body, &story); err != nil {
		return core.Comment{}, fmt.Errorf("failed to create story on task %s: %w", taskID, err)
	}
	return story, nil
}

// DeleteStory removes a story
func (c *Client) DeleteStory(ctx context.Context, storyID string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/stories/"+url.PathEscape(storyID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete story %s: %w", storyID, err)
	}
	return nil
}

// SetCompleted updates the completion flag of a task
func (c *Client) SetCompleted(ctx context.Context, taskID string, completed bool) error {
	body := map[string]any{"completed": completed}
	if _, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(taskID), body, nil); err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	return nil
}

// TaskProjects returns the projects a task is a member of
func (c *Client) TaskProjects(ctx context.Context, taskID string) ([]core.Project, error) {
	var task struct {
		Projects []core.Project `json:"projects"`
	}

	path := "/tasks/" + url.PathEscape(taskID) + "?opt_fields=projects.name"
	if _, err := c.do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return task.Projects, nil
}

// ProjectSections returns all sections of a project
func (c *Client) ProjectSections(ctx context.Context, projectID string) ([]core.Section, error) {
	var sections []core.Section

	path := "/projects/" + url.PathEscape(projectID) + "/sections?opt_fields=name"
	if _, err := c.do(ctx, http.MethodGet, path, nil, &sections); err != nil {
		return nil, fmt.Errorf("failed to get sections of project %s: %w", projectID, err)
	}
	return sections, nil
}

// AddTaskToSection moves a task into a section
func (c *Client) AddTaskToSection(ctx context.Context, sectionID, taskID string) error {
	body := map[string]any{"task": taskID}
	if _, err := c.do(ctx, http.MethodPost, "/sections/"+url.PathEscape(sectionID)+"/addTask", body, nil); err != nil {
		return fmt.Errorf("failed to add task %s to section %s: %w", taskID, sectionID, err)
	}
	return nil
}

// do sends a request wrapped in the {"data": ...} envelope and decodes the
// response data into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, data any, out any) (*envelope, error) {
	var reqBody io.Reader
	if data != nil {
		payload, err := json.Marshal(map[string]any{"data": data})
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		if resp.StatusCode >= 300 {
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, e := range env.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return nil, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return &env, nil
}

var _ core.Tracker = (*Client)(nil)
