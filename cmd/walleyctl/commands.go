package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"walley/internal/config"
	"walley/internal/ledger"
	"walley/internal/report"
	"walley/internal/storage"

	"github.com/google/subcommands"
)

// app holds what every subcommand shares.
type app struct {
	out    io.Writer
	errOut io.Writer
}

func (a *app) commands() []subcommands.Command {
	return []subcommands.Command{
		&summaryCmd{app: a},
		&historyCmd{app: a},
		&driftCmd{app: a},
		&categoriesCmd{app: a},
	}
}

// reportFlags are the flags common to all ledger reports.
type reportFlags struct {
	email string
	raw   bool
	width int
}

func (f *reportFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.email, "email", "", "Email of the user to report on")
	fs.BoolVar(&f.raw, "raw", false, "Print markdown without terminal styling")
	fs.IntVar(&f.width, "width", 100, "Wrap rendered output at this many columns")
}

// session is an opened database plus the reporter for the configured currency.
type session struct {
	db         *storage.DB
	reconciler *ledger.Reconciler
	reporter   *report.Reporter
}

func (a *app) open() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	reporter, err := report.New(cfg.Currency)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &session{db: db, reconciler: ledger.NewReconciler(db), reporter: reporter}, nil
}

// run opens the database, builds markdown with build and prints it.
func (a *app) run(ctx context.Context, flags reportFlags, build func(context.Context, *session, string) (string, error)) subcommands.ExitStatus {
	email := strings.TrimSpace(flags.email)
	if email == "" {
		fmt.Fprintln(a.errOut, "Error: -email is required")
		return subcommands.ExitUsageError
	}

	s, err := a.open()
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.db.Close()

	md, err := build(ctx, s, email)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if flags.raw {
		fmt.Fprint(a.out, md)
		return subcommands.ExitSuccess
	}
	out, err := report.Render(md, flags.width)
	if err != nil {
		fmt.Fprintf(a.errOut, "Error rendering report: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprint(a.out, out)
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	app   *app
	flags reportFlags
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display spending and deposit totals for a user" }
func (*summaryCmd) Usage() string {
	return `walleyctl summary -email <email> [-raw] [-width n]

  Displays total spent, total deposited, average amount and transaction count.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) { c.flags.register(f) }

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, c.flags, func(ctx context.Context, s *session, email string) (string, error) {
		// Summary alone reports zeros for unknown emails.
		if _, err := s.db.GetUserByEmail(ctx, email); err != nil {
			return "", err
		}
		summary, err := s.reconciler.Summary(ctx, email)
		if err != nil {
			return "", err
		}
		return s.reporter.SummaryMarkdown(email, summary), nil
	})
}

type historyCmd struct {
	app   *app
	flags reportFlags
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list a user's transactions in date order" }
func (*historyCmd) Usage() string {
	return `walleyctl history -email <email> [-raw] [-width n]

  Displays the user's balance and savings followed by every transaction.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) { c.flags.register(f) }

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, c.flags, func(ctx context.Context, s *session, email string) (string, error) {
		user, history, err := s.reconciler.UserWithHistory(ctx, email)
		if err != nil {
			return "", err
		}
		return s.reporter.HistoryMarkdown(user, history), nil
	})
}

type driftCmd struct {
	app   *app
	flags reportFlags
}

func (*driftCmd) Name() string     { return "drift" }
func (*driftCmd) Synopsis() string { return "compare a user's balance with their transactions" }
func (*driftCmd) Usage() string {
	return `walleyctl drift -email <email> [-raw] [-width n]

  Displays the stored balance, the sum of the user's transactions and the
  difference between them.
`
}

func (c *driftCmd) SetFlags(f *flag.FlagSet) { c.flags.register(f) }

func (c *driftCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, c.flags, func(ctx context.Context, s *session, email string) (string, error) {
		user, err := s.db.GetUserByEmail(ctx, email)
		if err != nil {
			return "", err
		}
		drift, err := s.reconciler.Drift(ctx, email)
		if err != nil {
			return "", err
		}
		return s.reporter.DriftMarkdown(user, drift), nil
	})
}

type categoriesCmd struct {
	app   *app
	flags reportFlags
	month string
}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "break a user's spending down by category" }
func (*categoriesCmd) Usage() string {
	return `walleyctl categories -email <email> [-m <yyyy-mm>] [-raw] [-width n]

  Displays the user's spending per category with each category's share of the
  total. Without -m every transaction is included.
`
}

func (c *categoriesCmd) SetFlags(f *flag.FlagSet) {
	c.flags.register(f)
	f.StringVar(&c.month, "m", "", "Month to report on, as yyyy-mm")
}

func (c *categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var from, to time.Time
	if c.month != "" {
		m, err := time.Parse("2006-01", c.month)
		if err != nil {
			fmt.Fprintf(c.app.errOut, "Error parsing month %q: expected yyyy-mm\n", c.month)
			return subcommands.ExitUsageError
		}
		if from, to, err = ledger.MonthRange(m.Year(), int(m.Month())); err != nil {
			fmt.Fprintf(c.app.errOut, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	return c.app.run(ctx, c.flags, func(ctx context.Context, s *session, email string) (string, error) {
		b, err := s.reconciler.Categories(ctx, email, from, to)
		if err != nil {
			return "", err
		}
		return s.reporter.CategoriesMarkdown(email, b), nil
	})
}
