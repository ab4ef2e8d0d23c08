// Package apply executes a migration's forward statements against a live
// database.
package apply

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// WarningLevel grades a preflight warning's severity.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// Warning is one preflight finding against a statement.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// PreflightResult collects the findings Preflight produces for a statement
// list before Apply executes them.
type PreflightResult struct {
	Warnings []Warning
}

// Preflight inspects statements for operations Applier considers unsafe to
// run unattended: currently, any DELETE with no WHERE clause. A
// well-formed diff-set never produces one (every Delete operation carries
// either a full old row or a PK), but Applier also accepts hand-written
// SQL files, so the check runs regardless of where the statements came
// from.
func Preflight(statements []string) *PreflightResult {
	result := &PreflightResult{}
	for _, stmt := range statements {
		upper := strings.ToUpper(strings.TrimSpace(stmt))
		if strings.HasPrefix(upper, "DELETE") && !strings.Contains(upper, "WHERE") {
			result.Warnings = append(result.Warnings, Warning{
				Level:   WarnDanger,
				Message: "DELETE without a WHERE clause affects every row in the table",
				SQL:     stmt,
			})
		}
	}
	return result
}

// HasDangerousWarnings reports whether result contains a WarnDanger entry.
func HasDangerousWarnings(result *PreflightResult) bool {
	for _, w := range result.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}

// Options configures an Applier run.
type Options struct {
	DSN         string
	DryRun      bool
	Transaction bool
	Unsafe      bool // allow DANGER-level statements through
	Out         io.Writer
}

// Applier connects to a live database and executes migration statements.
type Applier struct {
	db      *sql.DB
	dialect string
	options Options
	out     io.Writer
}

// NewApplier builds an Applier for the named dialect (used only to select
// the database/sql driver — statements are assumed already rendered).
func NewApplier(dialectName string, options Options) *Applier {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	return &Applier{dialect: dialectName, options: options, out: out}
}

func (a *Applier) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Connect opens and pings the database connection named by a.options.DSN.
func (a *Applier) Connect(ctx context.Context) error {
	db, err := sql.Open(a.dialect, a.options.DSN)
	if err != nil {
		return fmt.Errorf("apply: open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply: ping: %w", err)
	}
	a.db = db
	return nil
}

// Close closes the underlying connection, if one was opened.
func (a *Applier) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Apply runs statements against the connected database, honoring DryRun,
// Transaction, and the Unsafe override for DANGER-level preflight
// warnings. preflight is produced by Preflight.
func (a *Applier) Apply(ctx context.Context, statements []string, preflight *PreflightResult) error {
	for _, w := range preflight.Warnings {
		a.printf("%s: %s\n", w.Level, w.Message)
	}
	if HasDangerousWarnings(preflight) && !a.options.Unsafe {
		return fmt.Errorf("apply: preflight found DANGER-level statements; rerun with Unsafe to proceed")
	}

	if a.options.DryRun {
		for i, stmt := range statements {
			a.printf("[%d/%d] (dry run) %s\n", i+1, len(statements), stmt)
		}
		return nil
	}

	if a.options.Transaction {
		return a.applyInTransaction(ctx, statements)
	}
	return a.applyDirect(ctx, statements)
}

func (a *Applier) applyInTransaction(ctx context.Context, statements []string) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply: begin transaction: %w", err)
	}
	for i, stmt := range statements {
		start := time.Now()
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("apply: statement %d failed: %w; rollback also failed: %w", i+1, err, rbErr)
			}
			return fmt.Errorf("apply: statement %d failed (rolled back): %w", i+1, err)
		}
		a.printf("[%d/%d] OK (%s)\n", i+1, len(statements), time.Since(start).Round(time.Millisecond))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply: commit: %w", err)
	}
	return nil
}

func (a *Applier) applyDirect(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		start := time.Now()
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply: statement %d failed: %w (%d statements already applied)", i+1, err, i)
		}
		a.printf("[%d/%d] OK (%s)\n", i+1, len(statements), time.Since(start).Round(time.Millisecond))
	}
	return nil
}
