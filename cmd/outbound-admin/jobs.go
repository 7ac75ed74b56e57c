package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-outbound/internal/bootstrap"
	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/service"
)

const (
	defaultRunTimeout     = 10 * time.Minute
	defaultCommandTimeout = time.Minute
	maxRunLimit           = 1000
)

type runDueOptions struct {
	Limit   int
	Now     time.Time
	JSON    bool
	Timeout time.Duration
}

type enqueueOptions struct {
	Request model.CreateOutboundJobRequest
	JSON    bool
}

type showJobOptions struct {
	ID   string
	JSON bool
}

func runDue(cmdCtx *commandContext, args []string) error {
	opts, err := parseRunDueFlags(args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, opts.Timeout, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		res, runErr := svc.Runner.RunDueJobs(ctx, opts.Limit, opts.Now)
		if runErr != nil {
			return fmt.Errorf("run due jobs: %w", runErr)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, res)
		}
		return printBatchResult(cmdCtx.Out, res)
	})
}

func runEnqueue(cmdCtx *commandContext, args []string) error {
	opts, err := parseEnqueueFlags(args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		job, createErr := svc.Jobs.Create(ctx, &opts.Request)
		if createErr != nil {
			return fmt.Errorf("create job: %w", createErr)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, job)
		}
		return printJob(cmdCtx.Out, job)
	})
}

func runShowJob(cmdCtx *commandContext, args []string) error {
	opts, err := parseShowJobFlags(args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, defaultCommandTimeout, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		job, getErr := svc.Jobs.Get(ctx, opts.ID)
		if getErr != nil {
			return fmt.Errorf("get job: %w", getErr)
		}
		attempts, listErr := svc.Jobs.ListAttempts(ctx, opts.ID)
		if listErr != nil {
			return fmt.Errorf("list attempts: %w", listErr)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, map[string]any{"job": job, "attempts": attempts})
		}
		if err := printJob(cmdCtx.Out, job); err != nil {
			return err
		}
		return printAttempts(cmdCtx.Out, attempts)
	})
}

func parseRunDueFlags(args []string) (runDueOptions, error) {
	fs := flag.NewFlagSet("run-due", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := runDueOptions{Timeout: defaultRunTimeout}
	var now string
	fs.IntVar(&opts.Limit, "limit", 0, "Maximum jobs to claim (0 uses OUTBOUND_BATCH_LIMIT)")
	fs.StringVar(&now, "now", "", "Evaluation time in RFC3339 (defaults to the current time)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the batch result as JSON")
	fs.DurationVar(&opts.Timeout, "timeout", defaultRunTimeout, "Maximum duration of the pass")

	if err := fs.Parse(args); err != nil {
		return runDueOptions{}, err
	}
	if opts.Limit < 0 || opts.Limit > maxRunLimit {
		return runDueOptions{}, fmt.Errorf("--limit must be between 0 and %d", maxRunLimit)
	}
	if opts.Timeout <= 0 {
		return runDueOptions{}, errors.New("--timeout must be greater than zero")
	}
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return runDueOptions{}, fmt.Errorf("--now: %w", err)
		}
		opts.Now = t
	}
	return opts, nil
}

func parseEnqueueFlags(args []string) (enqueueOptions, error) {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts                                    enqueueOptions
		channel, purpose, customer, scheduledAt string
		msg                                     model.Message
	)
	payload := &opts.Request.Payload
	fs.StringVar(&opts.Request.CampaignID, "campaign", "", "Campaign ID (required)")
	fs.StringVar(&channel, "channel", "", "Channel: sms, voice, chat or email (required)")
	fs.StringVar(&opts.Request.TargetAddress, "to", "", "Destination phone number or email address (required)")
	fs.StringVar(&customer, "customer", "", "Known customer ID")
	fs.StringVar(&purpose, "purpose", "", "Content kind matching the campaign purpose (required)")
	fs.StringVar(&msg.Text, "text", "", "Message text (required)")
	fs.StringVar(&msg.FinalText, "final-text", "", "Text released after verification")
	fs.StringVar(&msg.Subject, "subject", "", "Email subject")
	fs.StringVar(&msg.HTML, "html", "", "Email HTML body")
	fs.BoolVar(&payload.Sensitive, "sensitive", false, "Require step-up verification before release")
	fs.StringVar(&payload.TimezoneHint, "timezone", "", "IANA timezone hint for quiet hours")
	fs.BoolVar(&payload.ServiceNoticeOverride, "service-notice-override", false, "Mark a service notice as bypassing opt-outs")
	fs.IntVar(&opts.Request.MaxAttempts, "max-attempts", 0, "Attempt budget (0 uses the channel default)")
	fs.StringVar(&scheduledAt, "scheduled-at", "", "First attempt time in RFC3339")
	fs.BoolVar(&opts.JSON, "json", false, "Print the created job as JSON")

	if err := fs.Parse(args); err != nil {
		return enqueueOptions{}, err
	}

	var missing []string
	for name, v := range map[string]string{
		"--campaign": opts.Request.CampaignID,
		"--channel":  channel,
		"--to":       opts.Request.TargetAddress,
		"--purpose":  purpose,
		"--text":     msg.Text,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return enqueueOptions{}, fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	if err := opts.Request.Channel.UnmarshalText([]byte(channel)); err != nil {
		return enqueueOptions{}, fmt.Errorf("--channel: %w", err)
	}
	var p model.CampaignPurpose
	if err := p.UnmarshalText([]byte(purpose)); err != nil {
		return enqueueOptions{}, fmt.Errorf("--purpose: %w", err)
	}
	content, err := model.NewContent(p, msg)
	if err != nil {
		return enqueueOptions{}, fmt.Errorf("--purpose: %w", err)
	}
	payload.Content = content

	if c := strings.TrimSpace(customer); c != "" {
		opts.Request.CustomerID = &c
	}
	if scheduledAt != "" {
		t, parseErr := time.Parse(time.RFC3339, scheduledAt)
		if parseErr != nil {
			return enqueueOptions{}, fmt.Errorf("--scheduled-at: %w", parseErr)
		}
		opts.Request.ScheduledAt = &t
	}
	return opts, nil
}

func parseShowJobFlags(args []string) (showJobOptions, error) {
	fs := flag.NewFlagSet("show-job", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts showJobOptions
	fs.StringVar(&opts.ID, "id", "", "Job ID (required)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the job and attempts as JSON")

	if err := fs.Parse(args); err != nil {
		return showJobOptions{}, err
	}
	opts.ID = strings.TrimSpace(opts.ID)
	if opts.ID == "" {
		return showJobOptions{}, errors.New("--id is required")
	}
	return opts, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBatchResult(w io.Writer, res service.BatchResult) error {
	if err := writef(w, "Claimed: %d\n", res.Claimed); err != nil {
		return err
	}
	if res.Claimed == 0 {
		return nil
	}

	outcomes := make([]string, 0, len(res.Counts))
	for outcome, n := range res.Counts {
		outcomes = append(outcomes, fmt.Sprintf("%s=%d", outcome, n))
	}
	sort.Strings(outcomes)
	if err := writef(w, "Outcomes: %s\n\n", strings.Join(outcomes, " ")); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "JOB\tCHANNEL\tOUTCOME\tSTATUS\tATTEMPT\tDETAIL"); err != nil {
		return err
	}
	for _, r := range res.Results {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.JobID, r.Channel, r.Outcome, r.Status, r.AttemptNumber, resultDetail(r)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func resultDetail(r service.JobResult) string {
	switch {
	case len(r.Reasons) > 0:
		parts := make([]string, len(r.Reasons))
		for i, reason := range r.Reasons {
			parts[i] = string(reason)
		}
		return strings.Join(parts, ",")
	case r.ErrorCode != "":
		return r.ErrorCode
	case r.NextAttemptAt != nil:
		return "next " + r.NextAttemptAt.UTC().Format(time.RFC3339)
	case r.OutcomeCode != nil:
		return string(*r.OutcomeCode)
	}
	return "-"
}

func printJob(w io.Writer, job *model.OutboundJob) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", job.ID},
		{"Campaign", job.CampaignID},
		{"Customer", deref(job.CustomerID)},
		{"Channel", string(job.Channel)},
		{"Status", string(job.Status)},
		{"Outcome", derefOutcome(job.OutcomeCode)},
		{"Attempts", fmt.Sprintf("%d/%d", job.AttemptCount, job.MaxAttempts)},
		{"Next attempt", formatTime(job.NextAttemptAt)},
		{"Verification", string(job.Payload.VerificationState)},
		{"Last error", joinNonEmpty(deref(job.LastErrorCode), deref(job.LastErrorMessage))},
		{"Created", job.CreatedAt.UTC().Format(time.RFC3339)},
		{"Updated", job.UpdatedAt.UTC().Format(time.RFC3339)},
	}
	if job.CancelReasonCode != nil {
		rows = append(rows, [2]string{"Cancel reason", joinNonEmpty(string(*job.CancelReasonCode), deref(job.CancelReasonMessage))})
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printAttempts(w io.Writer, attempts []*model.OutboundAttempt) error {
	if len(attempts) == 0 {
		return writef(w, "\nNo attempts recorded.\n")
	}
	if err := writef(w, "\nAttempts:\n"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "#\tPROVIDER\tSTATUS\tPROVIDER_ID\tERROR\tAT"); err != nil {
		return err
	}
	for _, a := range attempts {
		if err := writef(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			a.AttemptNumber,
			a.Provider,
			a.Status,
			deref(a.ProviderMessageID),
			joinNonEmpty(deref(a.ErrorCode), deref(a.ErrorMessage)),
			a.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func derefOutcome(o *model.OutcomeCode) string {
	if o == nil {
		return "-"
	}
	return string(*o)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" && p != "-" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "-"
	}
	return strings.Join(kept, ": ")
}
