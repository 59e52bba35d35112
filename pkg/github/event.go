package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ksysoev/asana-pr-action/pkg/core"
)

// PullRequestGetter fetches pull requests by number
type PullRequestGetter interface {
	GetPullRequest(ctx context.Context, number int) (*core.PullRequest, error)
}

// PullRequestFromEvent reads the pull request from a webhook event payload.
func PullRequestFromEvent(event map[string]any) (*core.PullRequest, bool) {
	pr, ok := event["pull_request"].(map[string]any)
	if !ok {
		return nil, false
	}

	result := &core.PullRequest{}
	if n, ok := pr["number"].(float64); ok {
		result.Number = int(n)
	}
	if body, ok := pr["body"].(string); ok {
		result.Body = body
	}
	if head, ok := pr["head"].(map[string]any); ok {
		if sha, ok := head["sha"].(string); ok {
			result.HeadSHA = sha
		}
	}

	return result, true
}

// ResolvePullRequest takes the pull request from the event payload, or fetches
// it by prNumber when the payload has none. getter may be nil when no token is configured.
func ResolvePullRequest(ctx context.Context, event map[string]any, prNumber string, getter PullRequestGetter) (*core.PullRequest, error) {
	if pr, ok := PullRequestFromEvent(event); ok {
		return pr, nil
	}

	prNumber = strings.TrimSpace(prNumber)
	if prNumber == "" {
		return nil, fmt.Errorf("%w: event has no pull_request and PR_NUMBER is not set", core.ErrNoPullRequest)
	}

	number, err := strconv.Atoi(prNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid PR_NUMBER %q", core.ErrNoPullRequest, prNumber)
	}

	if getter == nil {
		return nil, fmt.Errorf("%w: github-token is required to fetch PR #%d", core.ErrMissingInput, number)
	}

	return getter.GetPullRequest(ctx, number)
}
