// Command outbound-admin runs one-shot operator tasks against the outbound
// job store: migrations, manual batches, enqueueing, inspection and cleanup.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/bootstrap"
)

// Exit codes follow the usual shell convention: 2 for usage mistakes.
const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

type subcommand struct {
	name    string
	summary string
	run     func(cc *commandContext, args []string) error
}

var subcommands = []subcommand{
	{"audit", "Query the outbound audit trail", runAudit},
	{"enqueue", "Create an outbound job for a campaign", runEnqueue},
	{"migrate", "Run database migrations", runMigrations},
	{"reap", "Release expired claims and delete old terminal jobs once", runReap},
	{"run-due", "Claim and process due outbound jobs once", runDue},
	{"show-job", "Print an outbound job and its attempt history", runShowJob},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr)) //nolint:forbidigo // exit status is the CLI contract
}

func run(args []string, stdout, stderr io.Writer) int {
	sc, err := lookup(args)
	if err != nil {
		if err != errUsage {
			_ = writef(stderr, "%v\n\n", err)
		}
		_ = printUsage(stderr)
		return exitUsage
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		_ = writef(stderr, "load config: %v\n", err)
		return exitFail
	}
	logger := bootstrap.InitLogger(cfg.Log)

	cc := &commandContext{Ctx: context.Background(), Logger: logger, Config: cfg, Out: stdout}
	if err := sc.run(cc, args[1:]); err != nil {
		logger.ErrorContext(cc.Ctx, "command failed", "command", sc.name, "error", err)
		return exitFail
	}
	return exitOK
}

func lookup(args []string) (subcommand, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return subcommand{}, errUsage
	}
	i := slices.IndexFunc(subcommands, func(s subcommand) bool { return s.name == args[0] })
	if i < 0 {
		return subcommand{}, fmt.Errorf("unknown command %q", args[0])
	}
	return subcommands[i], nil
}

func printUsage(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Usage: outbound-admin <command> [flags]\n\nAvailable commands:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(&b, "  %-12s %s\n", sc.name, sc.summary)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
