package sync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/switchman/internal/extract"
	"github.com/zulandar/switchman/internal/jira"
	"github.com/zulandar/switchman/internal/runlog"
)

func srcrBackfill(c Client, s runlog.Sink, n Notifier) *Backfill {
	return &Backfill{
		Name:     WorkflowSyncSRCR,
		Header:   "Sync SR/CRs to Bugs Updates:",
		SkipLine: "SKIPPED DEFECT HAS NO SR/CR",
		Rules: []Rule{
			{Label: "SalesForce SR", TargetField: "customfield_17643", SourceField: "customfield_17801", Extract: extract.NumericToken},
			{Label: "SalesForce CR", TargetField: "customfield_17687", SourceField: "customfield_17800", Extract: extract.NumericToken},
		},
		Opts: Opts{Client: c, Sink: s, Notifier: n, PageSize: 50, MaxIssues: 100},
	}
}

func TestBackfill_WritesEmptyTargets(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "bug one", "20001", "SR-1", nil),
		},
		details: map[string]*jira.Issue{
			"20001": mkDetail("20001", "SR-1", "service request one", map[string]interface{}{
				"customfield_17801": `<a href="x">01625829</a>`,
				"customfield_17800": `<a href="y">00412233</a>`,
			}),
		},
	}
	sink := runlog.NewMemorySink()
	notifier := &recordingNotifier{}

	summary, err := srcrBackfill(fake, sink, notifier).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Tickets != 1 {
		t.Errorf("Tickets = %d, want 1", summary.Tickets)
	}
	if summary.Writes != 2 {
		t.Errorf("Writes = %d, want 2", summary.Writes)
	}
	if len(fake.updates) != 2 {
		t.Fatalf("updates = %v, want 2 entries", fake.updates)
	}
	if fake.updates[0] != "10001:customfield_17643=01625829" {
		t.Errorf("updates[0] = %q", fake.updates[0])
	}
	if fake.updates[1] != "10001:customfield_17687=00412233" {
		t.Errorf("updates[1] = %q", fake.updates[1])
	}

	text, _ := sink.ReadAll()
	for _, want := range []string{
		"Sync SR/CRs to Bugs Updates:\n",
		"LS-1    bug one\n",
		"--Linked to: SR-1 service request one\n",
		"---SalesForce SR: 01625829\n",
		"---SalesForce CR: 00412233\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("log missing %q in %q", want, text)
		}
	}

	if len(notifier.summaries) != 1 {
		t.Fatalf("notifier summaries = %d, want 1", len(notifier.summaries))
	}
	if notifier.summaries[0].Writes != 2 {
		t.Errorf("notified Writes = %d, want 2", notifier.summaries[0].Writes)
	}
}

func TestBackfill_NeverOverwritesPopulatedField(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "bug one", "20001", "SR-1", map[string]interface{}{
				"customfield_17643": "X", // human-entered SR number
			}),
		},
		details: map[string]*jira.Issue{
			"20001": mkDetail("20001", "SR-1", "sr", map[string]interface{}{
				"customfield_17801": `<a>99999999</a>`, // would extract "Y" != "X"
			}),
		},
	}
	sink := runlog.NewMemorySink()

	summary, err := srcrBackfill(fake, sink, nil).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Writes != 0 {
		t.Errorf("Writes = %d, want 0", summary.Writes)
	}
	if got := fake.issues[0].Fields.StringField("customfield_17643"); got != "X" {
		t.Errorf("customfield_17643 = %q, want untouched %q", got, "X")
	}
	text, _ := sink.ReadAll()
	if !strings.Contains(text, "---SKIPPED DEFECT HAS NO SR/CR\n") {
		t.Errorf("log missing skip line: %q", text)
	}
}

func TestBackfill_Idempotent(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "bug one", "20001", "SR-1", nil),
		},
		details: map[string]*jira.Issue{
			"20001": mkDetail("20001", "SR-1", "sr", map[string]interface{}{
				"customfield_17801": `<a>01625829</a>`,
				"customfield_17800": `<a>00412233</a>`,
			}),
		},
	}
	sink := runlog.NewMemorySink()
	wf := srcrBackfill(fake, sink, nil)

	first, err := wf.Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Writes != 2 {
		t.Fatalf("first run Writes = %d, want 2", first.Writes)
	}

	second, err := wf.Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Writes != 0 {
		t.Errorf("second run Writes = %d, want 0 (targets already populated)", second.Writes)
	}
	if len(fake.updates) != 2 {
		t.Errorf("total updates = %d, want 2 (no repeat writes)", len(fake.updates))
	}

	// Field state identical after run one and run two.
	if got := fake.issues[0].Fields.StringField("customfield_17643"); got != "01625829" {
		t.Errorf("customfield_17643 = %q, want %q", got, "01625829")
	}

	// Still two log blocks, in call order, separated by a blank line.
	text, _ := sink.ReadAll()
	blocks := strings.Split(strings.TrimRight(text, "\n"), "\n\n")
	if len(blocks) != 2 {
		t.Fatalf("log blocks = %d, want 2:\n%q", len(blocks), text)
	}
	for i, b := range blocks {
		if !strings.HasPrefix(b, "Sync SR/CRs to Bugs Updates:") {
			t.Errorf("block %d missing header: %q", i, b)
		}
		// One processed ticket per block.
		if !strings.Contains(b, "LS-1    bug one") {
			t.Errorf("block %d missing ticket line: %q", i, b)
		}
	}
}

func TestBackfill_TicketWithoutLinksIsQuietNoOp(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "no links here", "", "", nil),
		},
	}
	sink := runlog.NewMemorySink()

	summary, err := srcrBackfill(fake, sink, nil).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Writes != 0 || summary.Errors != 0 {
		t.Errorf("summary = %+v, want no writes, no errors", summary)
	}

	text, _ := sink.ReadAll()
	if strings.Contains(text, "LS-1") {
		t.Errorf("linkless ticket should not be logged: %q", text)
	}
	// The block (header only) is still appended.
	if !strings.Contains(text, "Sync SR/CRs to Bugs Updates:\n") {
		t.Errorf("log missing header block: %q", text)
	}
}

func TestBackfill_LinkedFetchFailureSkipsTicket(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "fetch fails", "20001", "SR-1", nil),
			mkIssue("10002", "LS-2", "fetch works", "20002", "SR-2", nil),
		},
		details: map[string]*jira.Issue{
			"20002": mkDetail("20002", "SR-2", "sr two", map[string]interface{}{
				"customfield_17801": `<a>01111111</a>`,
			}),
		},
		detailErr: map[string]error{"20001": errors.New("upstream 500")},
	}
	sink := runlog.NewMemorySink()

	summary, err := srcrBackfill(fake, sink, nil).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("batch should continue past a linked-issue fetch failure: %v", err)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Writes != 1 {
		t.Errorf("Writes = %d, want 1 (second ticket still processed)", summary.Writes)
	}

	text, _ := sink.ReadAll()
	if strings.Contains(text, "LS-1") {
		t.Errorf("failed-fetch ticket should not appear in the log: %q", text)
	}
	if !strings.Contains(text, "LS-2") {
		t.Errorf("second ticket missing from log: %q", text)
	}
}

func TestBackfill_EmptyExtractionLogsSkip(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "bug", "20001", "SR-1", nil),
		},
		details: map[string]*jira.Issue{
			"20001": mkDetail("20001", "SR-1", "sr", map[string]interface{}{
				"customfield_17801": "no digits in tags here",
			}),
		},
	}
	sink := runlog.NewMemorySink()

	summary, err := srcrBackfill(fake, sink, nil).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Writes != 0 {
		t.Errorf("Writes = %d, want 0", summary.Writes)
	}
	if len(fake.updates) != 0 {
		t.Errorf("updates = %v, want none for empty extraction", fake.updates)
	}
	text, _ := sink.ReadAll()
	if !strings.Contains(text, "---SKIPPED DEFECT HAS NO SR/CR\n") {
		t.Errorf("log missing skip line: %q", text)
	}
}

func TestBackfill_UpdateFailureContinuesBatch(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "update fails", "20001", "SR-1", nil),
			mkIssue("10002", "LS-2", "update works", "20002", "SR-2", nil),
		},
		details: map[string]*jira.Issue{
			"20001": mkDetail("20001", "SR-1", "sr one", map[string]interface{}{
				"customfield_17801": `<a>01625829</a>`,
			}),
			"20002": mkDetail("20002", "SR-2", "sr two", map[string]interface{}{
				"customfield_17801": `<a>01111111</a>`,
			}),
		},
		updateErr: map[string]error{"10001": errors.New("403")},
	}

	summary, err := srcrBackfill(fake, runlog.NewMemorySink(), nil).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("batch should continue past a per-ticket update failure: %v", err)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Writes != 1 {
		t.Errorf("Writes = %d, want 1", summary.Writes)
	}
}

func TestBackfill_SearchFailureAbortsRun(t *testing.T) {
	fake := &fakeJira{searchErr: errors.New("jira down")}
	sink := runlog.NewMemorySink()

	_, err := srcrBackfill(fake, sink, nil).Run(context.Background(), "project = LS")
	if err == nil {
		t.Fatal("expected error when search fails")
	}
	text, _ := sink.ReadAll()
	if text != "" {
		t.Errorf("no log block should be appended on search failure, got %q", text)
	}
}

func TestBackfill_EmptyBatchAppendsNothing(t *testing.T) {
	fake := &fakeJira{}
	sink := runlog.NewMemorySink()
	notifier := &recordingNotifier{}

	summary, err := srcrBackfill(fake, sink, notifier).Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Tickets != 0 {
		t.Errorf("Tickets = %d, want 0", summary.Tickets)
	}
	text, _ := sink.ReadAll()
	if text != "" {
		t.Errorf("empty batch should not append a block, got %q", text)
	}
}

func TestBackfill_SinkFailureFailsRun(t *testing.T) {
	fake := &fakeJira{
		issues: []jira.Issue{
			mkIssue("10001", "LS-1", "bug", "", "", nil),
		},
	}
	notifier := &recordingNotifier{}

	_, err := srcrBackfill(fake, failSink{}, notifier).Run(context.Background(), "project = LS")
	if err == nil {
		t.Fatal("expected error when the sink append fails")
	}
	if len(notifier.summaries) != 0 {
		t.Errorf("no notification should go out for a failed run, got %d", len(notifier.summaries))
	}
}

func TestBackfill_CustomerInfoRule(t *testing.T) {
	wf := &Backfill{
		Name:     WorkflowUpdateCustomerInfo,
		Header:   "Update Customer Information Updates:",
		SkipLine: "SKIPPED DEFECT HAS NO LS Customer",
		Rules: []Rule{
			{
				Label:       "LS Customer",
				TargetField: "customfield_17674",
				SourceField: "customfield_15507",
				Extract:     func(s string) string { return extract.NthDashField(s, 4) },
			},
		},
		Opts: Opts{
			Client: &fakeJira{
				issues: []jira.Issue{
					mkIssue("10001", "LS-1", "bug", "20001", "SR-1", nil),
				},
				details: map[string]*jira.Issue{
					"20001": mkDetail("20001", "SR-1", "sr", map[string]interface{}{
						"customfield_15507": "01625829 - Normal - Normal - Microsoft Corporation - Richardson - US - Kha Doan",
					}),
				},
			},
			Sink:      runlog.NewMemorySink(),
			PageSize:  50,
			MaxIssues: 100,
		},
	}

	summary, err := wf.Run(context.Background(), "project = LS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Writes != 1 {
		t.Fatalf("Writes = %d, want 1", summary.Writes)
	}

	fake := wf.Client.(*fakeJira)
	if got := fake.issues[0].Fields.StringField("customfield_17674"); got != "Microsoft Corporation" {
		t.Errorf("customfield_17674 = %q, want %q", got, "Microsoft Corporation")
	}
	text, _ := wf.Sink.ReadAll()
	if !strings.Contains(text, "---LS Customer: Microsoft Corporation\n") {
		t.Errorf("log missing customer line: %q", text)
	}
}
