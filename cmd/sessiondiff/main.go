// Package main is the cobra-based sessiondiff CLI: inspect, invert,
// ingest, convert, and apply changeset/patchset files.
package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"sessiondiff/internal/apply"
	"sessiondiff/internal/cdc/debezium"
	"sessiondiff/internal/cdc/maxwell"
	"sessiondiff/internal/cdc/pgwalstream"
	"sessiondiff/internal/cdc/wal2json"
	"sessiondiff/internal/codec"
	"sessiondiff/internal/core"
	"sessiondiff/internal/dialect"
	_ "sessiondiff/internal/dialect/mysql"
	"sessiondiff/internal/obslog"
	"sessiondiff/internal/output"
	"sessiondiff/internal/schemafile"
	"sessiondiff/internal/sqltext"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sessiondiff",
		Short: "Inspect, invert, and generate SQLite-style changeset/patchset files",
	}

	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(invertCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(applyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type inspectFlags struct {
	format string
}

func inspectCmd() *cobra.Command {
	flags := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Parse a changeset or patchset file and print a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInspect(args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "human", "Report format: human or json")
	return cmd
}

func runInspect(path string, flags *inspectFlags) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("inspect: read %s: %w", path, err)
	}
	store, err := codec.Parse(data)
	if err != nil {
		return fmt.Errorf("inspect: parse %s: %w", path, err)
	}

	switch strings.ToLower(flags.format) {
	case "", "human":
		fmt.Print(output.Human(store))
	case "json":
		b, err := output.JSON(store)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
		fmt.Println(string(b))
	default:
		return fmt.Errorf("inspect: unsupported format %q; use human or json", flags.format)
	}
	return nil
}

func invertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invert <in> <out>",
		Short: "Invert a changeset file and write the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runInvert(args[0], args[1])
		},
	}
}

func runInvert(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("invert: read %s: %w", inPath, err)
	}
	store, err := codec.Parse(data)
	if err != nil {
		return fmt.Errorf("invert: parse %s: %w", inPath, err)
	}

	inverted, err := core.Invert(store)
	if err != nil {
		return fmt.Errorf("invert: %w", err)
	}
	inverted.Freeze()

	if err := os.WriteFile(outPath, codec.Serialize(inverted), 0o644); err != nil {
		return fmt.Errorf("invert: write %s: %w", outPath, err)
	}
	return nil
}

type ingestFlags struct {
	schemaPath string
}

func ingestCmd() *cobra.Command {
	flags := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest <statements.sql> <out.patchset>",
		Short: "Run the SQL ingester over a statement file and serialize the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runIngest(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVar(&flags.schemaPath, "schema", "", "TOML file declaring the table schemas (required)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func runIngest(sqlPath, outPath string, flags *ingestFlags) error {
	log := obslog.New(false)

	schemas, err := schemafile.NewParser().ParseFile(flags.schemaPath)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	ing := sqltext.NewIngester()
	for _, s := range schemas {
		ing.Register(s)
	}

	sqlBytes, err := os.ReadFile(sqlPath)
	if err != nil {
		return fmt.Errorf("ingest: read %s: %w", sqlPath, err)
	}

	ops, err := ing.Ingest(string(sqlBytes))
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	log.Infow("ingested statements", "path", sqlPath, "operations", len(ops))

	store := core.NewDiffSet(core.Patchset)
	for _, op := range ops {
		if err := store.Add(op.Schema, op.PK, op.Op); err != nil {
			return fmt.Errorf("ingest: add operation: %w", err)
		}
	}
	store.Freeze()

	if err := os.WriteFile(outPath, codec.Serialize(store), 0o644); err != nil {
		return fmt.Errorf("ingest: write %s: %w", outPath, err)
	}
	return nil
}

type convertFlags struct {
	format     string
	schemaPath string
}

func convertCmd() *cobra.Command {
	flags := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert <events.ndjson> <out.changeset>",
		Short: "Run a CDC shim over newline-delimited events and serialize the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConvert(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVar(&flags.format, "format", "", "Source format: wal2json-v1, wal2json-v2, maxwell, debezium, or pgwalstream (required)")
	cmd.Flags().StringVar(&flags.schemaPath, "schema", "", "TOML file declaring the table schemas (required)")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// schemaSet resolves a CDC event's table name to the schema it was
// declared against, ignoring the database/schema qualifier CDC sources
// attach since spec.md's table identity is name-only.
type schemaSet map[string]*core.NamedSchema

func newSchemaSet(schemas []*core.NamedSchema) schemaSet {
	set := make(schemaSet, len(schemas))
	for _, s := range schemas {
		set[s.TableName()] = s
	}
	return set
}

func (s schemaSet) lookup(table string) (*core.NamedSchema, error) {
	schema, ok := s[table]
	if !ok {
		return nil, fmt.Errorf("convert: %w: %q", core.ErrUnknownTable, table)
	}
	return schema, nil
}

type addFunc func(schema *core.NamedSchema, op *core.Operation, pk []core.Value) error

func runConvert(inPath, outPath string, flags *convertFlags) error {
	schemas, err := schemafile.NewParser().ParseFile(flags.schemaPath)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	set := newSchemaSet(schemas)

	f, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("convert: read %s: %w", inPath, err)
	}
	defer func() { _ = f.Close() }()

	store := core.NewDiffSet(core.Changeset)
	add := func(schema *core.NamedSchema, op *core.Operation, pk []core.Value) error {
		return store.Add(schema, pk, op)
	}

	switch strings.ToLower(flags.format) {
	case "wal2json-v2":
		err = convertWal2JSONV2(f, set, add)
	case "wal2json-v1":
		err = convertWal2JSONV1(f, set, add)
	case "maxwell":
		err = convertMaxwell(f, set, add)
	case "debezium":
		err = convertDebezium(f, set, add)
	case "pgwalstream":
		err = convertPgWalStream(f, set, add)
	default:
		err = fmt.Errorf("convert: unsupported format %q", flags.format)
	}
	if err != nil {
		return err
	}

	store.Freeze()
	if err := os.WriteFile(outPath, codec.Serialize(store), 0o644); err != nil {
		return fmt.Errorf("convert: write %s: %w", outPath, err)
	}
	return nil
}

func eachLine(r *os.File, fn func(line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func convertWal2JSONV2(r *os.File, set schemaSet, add addFunc) error {
	return eachLine(r, func(line []byte) error {
		msg, err := wal2json.ParseV2(line)
		if err != nil {
			return err
		}
		schema, err := set.lookup(msg.Table)
		if err != nil {
			return err
		}
		op, pk, err := msg.ToOperation(schema)
		if err != nil {
			return err
		}
		return add(schema, op, pk)
	})
}

func convertWal2JSONV1(r *os.File, set schemaSet, add addFunc) error {
	return eachLine(r, func(line []byte) error {
		tx, err := wal2json.ParseV1(line)
		if err != nil {
			return err
		}
		for i := range tx.Change {
			change := &tx.Change[i]
			schema, err := set.lookup(change.Table)
			if err != nil {
				return err
			}
			op, pk, err := change.ToOperation(schema)
			if err != nil {
				return err
			}
			if err := add(schema, op, pk); err != nil {
				return err
			}
		}
		return nil
	})
}

func convertMaxwell(r *os.File, set schemaSet, add addFunc) error {
	return eachLine(r, func(line []byte) error {
		msg, err := maxwell.Parse(line)
		if err != nil {
			return err
		}
		schema, err := set.lookup(msg.Table)
		if err != nil {
			return err
		}
		op, pk, err := msg.ToOperation(schema)
		if err != nil {
			return err
		}
		return add(schema, op, pk)
	})
}

func convertDebezium(r *os.File, set schemaSet, add addFunc) error {
	return eachLine(r, func(line []byte) error {
		env, err := debezium.Parse(line)
		if err != nil {
			return err
		}
		schema, err := set.lookup(env.Source.Table)
		if err != nil {
			return err
		}
		op, pk, err := env.ToOperation(schema)
		if err != nil {
			return err
		}
		return add(schema, op, pk)
	})
}

func convertPgWalStream(r *os.File, set schemaSet, add addFunc) error {
	return eachLine(r, func(line []byte) error {
		event, err := pgwalstream.Parse(line)
		if err != nil {
			return err
		}
		schema, err := set.lookup(event.Table)
		if err != nil {
			return err
		}
		op, pk, err := event.ToOperation(schema)
		if err != nil {
			return err
		}
		return add(schema, op, pk)
	})
}

type applyFlags struct {
	dsn     string
	dialect string
	dryRun  bool
	tx      bool
	unsafe  bool
}

func applyCmd() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply <patchset-file>",
		Short: "Parse a patchset file, render SQL, and apply it to a live database",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runApply(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "Database connection string (required)")
	cmd.Flags().StringVar(&flags.dialect, "dialect", "mysql", "SQL dialect to generate and apply with")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print statements and run preflight checks without executing")
	cmd.Flags().BoolVar(&flags.tx, "tx", true, "Run statements inside a single transaction")
	cmd.Flags().BoolVar(&flags.unsafe, "unsafe", false, "Allow DANGER-level preflight findings through")
	_ = cmd.MarkFlagRequired("dsn")
	return cmd
}

func runApply(path string, flags *applyFlags) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("apply: read %s: %w", path, err)
	}
	store, err := codec.Parse(data)
	if err != nil {
		return fmt.Errorf("apply: parse %s: %w", path, err)
	}

	d, err := dialect.Get(flags.dialect)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	statements, err := output.SQL(store, d)
	if err != nil {
		return fmt.Errorf("apply: render SQL: %w", err)
	}

	applier := apply.NewApplier(flags.dialect, apply.Options{
		DSN:         flags.dsn,
		DryRun:      flags.dryRun,
		Transaction: flags.tx,
		Unsafe:      flags.unsafe,
		Out:         os.Stdout,
	})
	defer func() { _ = applier.Close() }()

	preflight := apply.Preflight(statements)
	ctx := context.Background()

	if !flags.dryRun {
		if err := applier.Connect(ctx); err != nil {
			return fmt.Errorf("apply: %w", err)
		}
	}
	return applier.Apply(ctx, statements, preflight)
}
