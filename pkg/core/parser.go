package core

import (
	"regexp"
)

// TrackerHost is the only tracker domain recognised in task URLs.
const TrackerHost = "app.asana.com"

var taskURLPrefix = "https://" + TrackerHost + "/"

var taskURLPattern = regexp.QuoteMeta(taskURLPrefix) +
	`(?P<workspace>\d+)/(?P<list>\d+)/project/(?P<project>\d+)/task/(?P<task>\d+)`

// referenceRegexp builds the pattern for a trigger phrase followed by a task URL.
// An empty phrase matches any task URL.
func referenceRegexp(triggerPhrase string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(triggerPhrase) + `\s*` + taskURLPattern)
}

// ExtractReferences finds all task URLs preceded by the trigger phrase, in order of appearance.
// Duplicates are kept.
func ExtractReferences(text, triggerPhrase string, log Logger) []TaskReference {
	re := referenceRegexp(triggerPhrase)
	taskIdx := re.SubexpIndex("task")
	projectIdx := re.SubexpIndex("project")
	workspaceIdx := re.SubexpIndex("workspace")

	refs := []TaskReference{}
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if loc[2*taskIdx] < 0 {
			if log != nil {
				log.Warningf("Invalid task reference %q: no task id", match)
			}
			continue
		}

		taskID := text[loc[2*taskIdx]:loc[2*taskIdx+1]]
		if taskID == "" {
			if log != nil {
				log.Warningf("Invalid task reference %q: no task id", match)
			}
			continue
		}

		var projectID string
		if loc[2*projectIdx] >= 0 {
			projectID = text[loc[2*projectIdx]:loc[2*projectIdx+1]]
		}

		refs = append(refs, TaskReference{
			TaskID:    taskID,
			ProjectID: projectID,
			URL:       text[loc[2*workspaceIdx]-len(taskURLPrefix) : loc[1]],
		})
	}

	return refs
}

// TaskIDs returns the task ids of refs in order
func TaskIDs(refs []TaskReference) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.TaskID)
	}
	return ids
}
