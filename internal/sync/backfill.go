package sync

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Rule is one target-field backfill: read SourceField from the linked
// issue's detail, extract a value, and write it to TargetField on the
// current ticket, but only when TargetField is currently empty. The
// workflow never clobbers a human-entered value.
type Rule struct {
	Label       string              // log line label, e.g. "SalesForce SR"
	TargetField string              // field id written on the ticket
	SourceField string              // field id read from the linked detail
	Extract     func(string) string // total: "" means no value available
}

// Backfill walks every ticket matching a JQL query and applies its
// rules against the ticket's first linked outward issue. Tickets are
// processed strictly in search order, one at a time, so the log block
// lists them in the order they were evaluated.
type Backfill struct {
	Name     string
	Header   string // first line of each log block
	SkipLine string // logged when no rule wrote for a ticket
	Rules    []Rule
	Opts
}

// Run executes one batch. Per-ticket failures (linked-issue fetch,
// field update) are logged and skipped; the batch continues. The log
// block is appended once, after the whole batch, and an append failure
// fails the run.
func (b *Backfill) Run(ctx context.Context, jql string) (*Summary, error) {
	issues, err := b.Client.Search(ctx, jql, b.PageSize, b.MaxIssues)
	if err != nil {
		return nil, fmt.Errorf("sync: %s: %w", b.Name, err)
	}

	summary := &Summary{Workflow: b.Name, Tickets: len(issues)}
	if len(issues) == 0 {
		return summary, nil
	}

	var block strings.Builder
	block.WriteString(b.Header + "\n")

	for _, issue := range issues {
		// Only the first link's outward issue is consulted.
		link := issue.Fields.FirstOutwardLink()
		if link == nil {
			continue
		}

		detail, err := b.Client.GetIssue(ctx, link.ID)
		if err != nil {
			log.Printf("sync: %s: fetch linked issue %s for %s: %v", b.Name, link.ID, issue.Key, err)
			summary.Errors++
			continue
		}

		fmt.Fprintf(&block, "%s    %s\n", issue.Key, issue.Fields.Summary())
		fmt.Fprintf(&block, "--Linked to: %s %s\n", detail.Key, detail.Fields.Summary())

		wrote := false
		for _, rule := range b.Rules {
			if !issue.Fields.Empty(rule.TargetField) {
				continue
			}
			source := detail.Fields.StringField(rule.SourceField)
			if source == "" {
				continue
			}
			value := rule.Extract(source)
			if value == "" {
				// "Not found" is a normal outcome: no write, no line.
				continue
			}

			err := b.Client.UpdateFields(ctx, issue.ID, map[string]interface{}{
				rule.TargetField: value,
			})
			if err != nil {
				log.Printf("sync: %s: update %s on %s: %v", b.Name, rule.TargetField, issue.Key, err)
				summary.Errors++
				continue
			}

			log.Printf("sync: %s: %s updated for %s: %s", b.Name, rule.Label, issue.Key, value)
			fmt.Fprintf(&block, "---%s: %s\n", rule.Label, value)
			summary.Writes++
			wrote = true
		}

		if !wrote {
			fmt.Fprintf(&block, "---%s\n", b.SkipLine)
		}
	}

	if err := b.Sink.Append(block.String()); err != nil {
		return nil, fmt.Errorf("sync: %s: %w", b.Name, err)
	}

	if b.Notifier != nil {
		b.Notifier.RunCompleted(ctx, *summary)
	}
	return summary, nil
}
