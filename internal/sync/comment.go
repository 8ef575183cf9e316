package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// CommentRun posts one templated comment on every ticket matching a
// JQL query, addressing the ticket's assignee by display name.
type CommentRun struct {
	Name     string
	Header   string // first line of each log block
	Template string // comment body; "@assignee" is replaced per ticket
	Opts
}

// unassignedName is substituted when a ticket has no assignee.
const unassignedName = "assignee"

// RenderComment substitutes the assignee placeholder in a template.
func RenderComment(template, assignee string) string {
	if assignee == "" {
		assignee = unassignedName
	}
	return strings.Replace(template, "@assignee", "@"+assignee, 1)
}

// Run executes one batch. Per-ticket comment failures are recorded in
// the log block and the batch continues. A log append failure is
// logged but does not fail the run.
func (c *CommentRun) Run(ctx context.Context, jql string) (*Summary, error) {
	issues, err := c.Client.Search(ctx, jql, c.PageSize, c.MaxIssues)
	if err != nil {
		return nil, fmt.Errorf("sync: %s: %w", c.Name, err)
	}

	summary := &Summary{Workflow: c.Name, Tickets: len(issues)}
	if len(issues) == 0 {
		return summary, nil
	}

	var block strings.Builder
	block.WriteString(c.Header + "\n")

	for _, issue := range issues {
		assignee := issue.Fields.AssigneeDisplayName()
		if assignee == "" {
			assignee = unassignedName
		}
		body := RenderComment(c.Template, assignee)

		if err := c.Client.AddComment(ctx, issue.Key, body); err != nil {
			log.Printf("sync: %s: comment on %s: %v", c.Name, issue.Key, err)
			fmt.Fprintf(&block, "---Failed to add comment - assignee: @%s - Error: %v\n", assignee, err)
			summary.Errors++
			continue
		}

		log.Printf("sync: %s: comment added to %s", c.Name, issue.Key)
		fmt.Fprintf(&block, "%s    %s\n", issue.Key, issue.Fields.Summary())
		fmt.Fprintf(&block, "---Comment added - assignee: @%s\n", assignee)
		summary.Comments++
	}

	if err := c.Sink.Append(block.String()); err != nil {
		log.Printf("sync: %s: append run log: %v", c.Name, err)
	}

	if c.Notifier != nil {
		c.Notifier.RunCompleted(ctx, *summary)
	}
	return summary, nil
}
