package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/ksysoev/asana-pr-action/pkg/core"
	"golang.org/x/oauth2"
)

// Status check reported by assert-link.
const (
	StatusContext     = "asana-link-presence"
	StatusDescription = "Asana task link in pull request description"
)

// Client handles interaction with the GitHub API
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient creates a new GitHub client for the owner/name repository
func NewClient(token, repoFullName string) (*Client, error) {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return newClient(oauth2.NewClient(ctx, ts), repoFullName)
}

func newClient(httpClient *http.Client, repoFullName string) (*Client, error) {
	owner, repo, ok := strings.Cut(repoFullName, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q, expected owner/name", repoFullName)
	}

	return &Client{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}, nil
}

// GetPullRequest fetches a pull request by number
func (c *Client) GetPullRequest(ctx context.Context, number int) (*core.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR #%d: %w", number, err)
	}

	return &core.PullRequest{
		Number:  pr.GetNumber(),
		Body:    pr.GetBody(),
		HeadSHA: pr.GetHead().GetSHA(),
	}, nil
}

// ReportLinkPresence sets the asana-link-presence commit status on sha
func (c *Client) ReportLinkPresence(ctx context.Context, sha, state string) error {
	status := &github.RepoStatus{
		State:       github.String(state),
		Description: github.String(StatusDescription),
		Context:     github.String(StatusContext),
	}

	if _, _, err := c.client.Repositories.CreateStatus(ctx, c.owner, c.repo, sha, status); err != nil {
		return fmt.Errorf("failed to create status on %s: %w", sha, err)
	}
	return nil
}
