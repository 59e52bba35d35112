package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/ksysoev/asana-pr-action/pkg/asana"
	"github.com/ksysoev/asana-pr-action/pkg/core"
	"github.com/ksysoev/asana-pr-action/pkg/github"
	"github.com/sethvargo/go-githubactions"
)

func main() {
	action := githubactions.New()
	ctx := context.Background()

	// Action inputs first, then env vars (asana-pat -> ASANA_PAT)
	config, err := core.LoadConfig(func(name string) string {
		if v := action.GetInput(name); v != "" {
			return v
		}
		return os.Getenv(strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	})
	if err != nil {
		action.Fatalf("Invalid configuration: %v", err)
	}

	ghContext, err := action.Context()
	if err != nil {
		action.Fatalf("Failed to read GitHub context: %v", err)
	}

	var ghClient *github.Client
	var getter github.PullRequestGetter
	if config.GitHubToken != "" {
		ghClient, err = github.NewClient(config.GitHubToken, ghContext.Repository)
		if err != nil {
			action.Fatalf("Failed to create GitHub client: %v", err)
		}
		getter = ghClient
	}

	pr, err := github.ResolvePullRequest(ctx, ghContext.Event, os.Getenv("PR_NUMBER"), getter)
	if err != nil {
		action.Fatalf("Failed to resolve pull request: %v", err)
	}

	refs := core.ExtractReferences(pr.Body, config.TriggerPhrase, action)
	taskIDs := core.TaskIDs(refs)
	action.Infof("Found %d Asana task(s): %s", len(taskIDs), strings.Join(taskIDs, ", "))
	setJSONOutput(action, "foundAsanaTasks", taskIDs)

	if config.Action == core.ActionAssertLink {
		sha := pr.HeadSHA
		if sha == "" {
			sha = ghContext.SHA
		}

		state := core.LinkState(len(taskIDs), config.LinkRequired)
		if err := ghClient.ReportLinkPresence(ctx, sha, state); err != nil {
			action.Fatalf("Failed to report link presence: %v", err)
		}
		action.Infof("Reported %s status %q on %s", github.StatusContext, state, sha)
		return
	}

	tracker := asana.NewClient(config.AsanaPAT, config.AsanaBaseURL)
	syncer := core.NewSynchronizer(tracker, action)

	outcomes, err := syncer.Run(ctx, config, taskIDs)
	if err != nil {
		action.Fatalf("Failed to run %s: %v", config.Action, err)
	}

	setJSONOutput(action, "result", outcomes)
	action.Infof("Asana %s completed for %d task(s)", config.Action, len(outcomes))
}

func setJSONOutput(action *githubactions.Action, name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		action.Warningf("Failed to encode output %s: %v", name, err)
		return
	}
	action.SetOutput(name, string(data))
}
