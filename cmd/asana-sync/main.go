// Command asana-sync runs the action's operations locally against a real
// workspace, reading the pull request description from a flag, a file or GitHub.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ksysoev/asana-pr-action/pkg/asana"
	"github.com/ksysoev/asana-pr-action/pkg/core"
	"github.com/ksysoev/asana-pr-action/pkg/github"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ASANA_SYNC"

// slogLogger adapts slog to the printf-style logger used by the synchronizer.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debugf(msg string, args ...any)   { s.l.Debug(fmt.Sprintf(msg, args...)) }
func (s slogLogger) Infof(msg string, args ...any)    { s.l.Info(fmt.Sprintf(msg, args...)) }
func (s slogLogger) Warningf(msg string, args ...any) { s.l.Warn(fmt.Sprintf(msg, args...)) }
func (s slogLogger) Errorf(msg string, args ...any)   { s.l.Error(fmt.Sprintf(msg, args...)) }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "asana-sync",
		Short:         "Sync Asana tasks referenced in a pull request description",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	pf := root.PersistentFlags()
	pf.String(core.InputAsanaPAT, "", "Asana personal access token")
	pf.String(core.InputAsanaBaseURL, asana.DefaultBaseURL, "Asana API base URL")
	pf.String(core.InputTriggerPhrase, "", "phrase that must precede a task URL")
	pf.String(core.InputGitHubToken, "", "GitHub token, needed with --pr or to report a status")
	pf.String("body", "", "pull request description")
	pf.String("body-file", "", "read the pull request description from a file (- for stdin)")
	pf.String("repo", "", "owner/name of the repository, used with --pr")
	pf.Int("pr", 0, "fetch the description of this pull request")
	pf.Bool("verbose", false, "log debug messages")

	assertCmd := newActionCmd(v, core.ActionAssertLink, "Check whether the description links a task")
	assertCmd.Flags().String(core.InputLinkRequired, "true", "fail when no task is linked")
	assertCmd.Flags().String("sha", "", "commit to set the status on; status is only reported when set")

	addCmd := newActionCmd(v, core.ActionAddComment, "Add a comment to every linked task")
	addCmd.Flags().String(core.InputText, "", "comment text")
	addCmd.Flags().String(core.InputCommentID, "", "marker that makes the comment idempotent")
	addCmd.Flags().String(core.InputIsPinned, "false", "pin the comment")

	removeCmd := newActionCmd(v, core.ActionRemoveComment, "Remove the marked comment from every linked task")
	removeCmd.Flags().String(core.InputCommentID, "", "marker of the comment to remove")

	completeCmd := newActionCmd(v, core.ActionCompleteTask, "Mark every linked task complete or incomplete")
	completeCmd.Flags().String(core.InputIsComplete, "true", "completion state to set")

	moveCmd := newActionCmd(v, core.ActionMoveSection, "Move every linked task into sections")
	moveCmd.Flags().String(core.InputTargets, "", `targets, e.g. [{"project":"Board","section":"In Review"}]`)

	root.AddCommand(newExtractCmd(v), assertCmd, addCmd, removeCmd, completeCmd, moveCmd)
	return root
}

func newExtractCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Print the task ids linked from the description",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readBody(cmd.Context(), v)
			if err != nil {
				return err
			}

			refs := core.ExtractReferences(body, v.GetString(core.InputTriggerPhrase), newLogger(v))
			return printJSON(cmd.OutOrStdout(), refs)
		},
	}
}

func newActionCmd(v *viper.Viper, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := newLogger(v)

			config, err := core.LoadConfig(func(name string) string {
				if name == core.InputAction {
					return action
				}
				return v.GetString(name)
			})
			if err != nil {
				return err
			}

			body, err := readBody(ctx, v)
			if err != nil {
				return err
			}

			taskIDs := core.TaskIDs(core.ExtractReferences(body, config.TriggerPhrase, log))
			log.Infof("Found %d Asana task(s): %s", len(taskIDs), strings.Join(taskIDs, ", "))

			if action == core.ActionAssertLink {
				state := core.LinkState(len(taskIDs), config.LinkRequired)
				if sha := v.GetString("sha"); sha != "" {
					client, err := github.NewClient(config.GitHubToken, v.GetString("repo"))
					if err != nil {
						return err
					}
					if err := client.ReportLinkPresence(ctx, sha, state); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), state)
				return nil
			}

			syncer := core.NewSynchronizer(asana.NewClient(config.AsanaPAT, config.AsanaBaseURL), log)
			outcomes, err := syncer.Run(ctx, config, taskIDs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), outcomes)
		},
	}
}

func newLogger(v *viper.Viper) core.Logger {
	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// readBody returns the description from --body, --body-file or --pr, in that order.
func readBody(ctx context.Context, v *viper.Viper) (string, error) {
	if body := v.GetString("body"); body != "" {
		return body, nil
	}

	if path := v.GetString("body-file"); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return "", fmt.Errorf("failed to read body: %w", err)
		}
		return string(data), nil
	}

	if number := v.GetInt("pr"); number > 0 {
		client, err := github.NewClient(v.GetString(core.InputGitHubToken), v.GetString("repo"))
		if err != nil {
			return "", err
		}
		pr, err := client.GetPullRequest(ctx, number)
		if err != nil {
			return "", err
		}
		return pr.Body, nil
	}

	return "", fmt.Errorf("%w: one of --body, --body-file or --pr", core.ErrNoPullRequest)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
