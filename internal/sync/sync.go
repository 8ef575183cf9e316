// Package sync implements Switchman's bot workflows: back-filling
// ticket fields from linked issues and posting templated comments, with
// an audit block appended to the run log per invocation.
package sync

import (
	"context"

	"github.com/zulandar/switchman/internal/config"
	"github.com/zulandar/switchman/internal/extract"
	"github.com/zulandar/switchman/internal/jira"
	"github.com/zulandar/switchman/internal/runlog"
)

// Stable workflow names, used in routes and schedule config.
const (
	WorkflowSyncSRCR           = "sync-sr-cr-numbers"
	WorkflowUpdateCustomerInfo = "update-customer-info"
	WorkflowMissingComponent   = "comment-for-missing-primary-component"
	WorkflowClonedStillDefects = "comment-for-cloned-defects-still-defects"
)

// Client is the slice of the Jira API the workflows depend on.
type Client interface {
	Search(ctx context.Context, jql string, pageSize, max int) ([]jira.Issue, error)
	GetIssue(ctx context.Context, idOrKey string) (*jira.Issue, error)
	UpdateFields(ctx context.Context, idOrKey string, fields map[string]interface{}) error
	AddComment(ctx context.Context, idOrKey, body string) error
}

// Summary describes one workflow run, for responses and notifications.
type Summary struct {
	Workflow string
	Tickets  int // tickets in the batch
	Writes   int // fields written
	Comments int // comments posted
	Errors   int // per-ticket failures that did not abort the batch
}

// Notifier receives run summaries. Implementations must be best-effort:
// delivery failures are their problem, never the workflow's.
type Notifier interface {
	RunCompleted(ctx context.Context, s Summary)
}

// Runner is one named workflow.
type Runner interface {
	Run(ctx context.Context, jql string) (*Summary, error)
}

// Registry maps workflow names to runners.
type Registry map[string]Runner

// Opts bundles the collaborators shared by every workflow.
type Opts struct {
	Client    Client
	Sink      runlog.Sink
	Notifier  Notifier
	PageSize  int
	MaxIssues int
}

// Comment templates. "@assignee" is replaced with the ticket
// assignee's display name at posting time.
const (
	missingComponentTemplate = `@assignee, please add the Primary Component to the Component field. ` +
		`One of TAS, TS, TC-GUI, Documentation, CI, "Mobile App", Licensing, Build, "License Tool or Server", or System.`
	clonedDefectTemplate = `@assignee, please convert/move your cloned Defect into a Bug and follow ` +
		`the standard process. You seem to have missed the step to move the Defect to a Bug.`
)

// NewRegistry builds the standard workflow set, resolving field roles
// through the deployment's field mapping.
func NewRegistry(opts Opts, fields config.FieldMap) Registry {
	return Registry{
		WorkflowSyncSRCR: &Backfill{
			Name:     WorkflowSyncSRCR,
			Header:   "Sync SR/CRs to Bugs Updates:",
			SkipLine: "SKIPPED DEFECT HAS NO SR/CR",
			Rules: []Rule{
				{
					Label:       "SalesForce SR",
					TargetField: fields.SRNumber,
					SourceField: fields.SourceSR,
					Extract:     extract.NumericToken,
				},
				{
					Label:       "SalesForce CR",
					TargetField: fields.SalesForceCR,
					SourceField: fields.SourceCR,
					Extract:     extract.NumericToken,
				},
			},
			Opts: opts,
		},
		WorkflowUpdateCustomerInfo: &Backfill{
			Name:     WorkflowUpdateCustomerInfo,
			Header:   "Update Customer Information Updates:",
			SkipLine: "SKIPPED DEFECT HAS NO LS Customer",
			Rules: []Rule{
				{
					Label:       "LS Customer",
					TargetField: fields.Customer,
					SourceField: fields.SourceCustomer,
					Extract: func(s string) string {
						return extract.NthDashField(s, 4)
					},
				},
			},
			Opts: opts,
		},
		WorkflowMissingComponent: &CommentRun{
			Name:     WorkflowMissingComponent,
			Header:   "Missing Primary Component Updates:",
			Template: missingComponentTemplate,
			Opts:     opts,
		},
		WorkflowClonedStillDefects: &CommentRun{
			Name:     WorkflowClonedStillDefects,
			Header:   "Cloned Defects still Defects Updates:",
			Template: clonedDefectTemplate,
			Opts:     opts,
		},
	}
}
