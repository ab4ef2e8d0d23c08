// Package sqltext ingests a stream of SQL INSERT/UPDATE/DELETE statements
// against a set of programmatically registered table schemas, translating
// each into patchset-format store operations (spec.md §4.6). It never
// accepts CREATE TABLE or any other DDL.
package sqltext

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"sessiondiff/internal/core"
)

// IngestedOp is one operation produced by ingesting a single SQL statement,
// paired with the schema and primary key it applies against so a caller
// can feed it straight into a DiffSet.Add call.
type IngestedOp struct {
	Schema *core.NamedSchema
	PK     []core.Value
	Op     *core.Operation
}

// Ingester holds the registered table schemas an Ingest call resolves
// table and column names against. The underlying *parser.Parser is not
// safe for concurrent use, matching the teacher's mysql.Parser shape.
type Ingester struct {
	p       *parser.Parser
	schemas map[string]*core.NamedSchema
}

// NewIngester returns an empty Ingester. Schemas must be registered with
// Register before any SQL referencing them can be ingested.
func NewIngester() *Ingester {
	return &Ingester{p: parser.New(), schemas: make(map[string]*core.NamedSchema)}
}

// Register makes schema resolvable by name for subsequent Ingest calls.
// A second Register for the same table name replaces the first.
func (ing *Ingester) Register(schema *core.NamedSchema) {
	ing.schemas[strings.ToLower(schema.TableName())] = schema
}

func (ing *Ingester) lookup(name string) (*core.NamedSchema, error) {
	schema, ok := ing.schemas[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("sqltext: table %q: %w", name, core.ErrUnknownTable)
	}
	return schema, nil
}

// Ingest parses sql (one or more semicolon-separated statements) and
// returns the operations each INSERT/UPDATE/DELETE produces, in statement
// order. A single multi-row INSERT produces one IngestedOp per row.
func (ing *Ingester) Ingest(sql string) ([]IngestedOp, error) {
	stmts, _, err := ing.p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("sqltext: parse: %w", err)
	}

	var out []IngestedOp
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.InsertStmt:
			ops, err := ing.ingestInsert(s)
			if err != nil {
				return nil, err
			}
			out = append(out, ops...)
		case *ast.UpdateStmt:
			op, err := ing.ingestUpdate(s)
			if err != nil {
				return nil, err
			}
			out = append(out, op)
		case *ast.DeleteStmt:
			op, err := ing.ingestDelete(s)
			if err != nil {
				return nil, err
			}
			out = append(out, op)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedStatement, stmt)
		}
	}
	return out, nil
}

func (ing *Ingester) ingestInsert(stmt *ast.InsertStmt) ([]IngestedOp, error) {
	name, err := tableName(stmt.Table)
	if err != nil {
		return nil, err
	}
	schema, err := ing.lookup(name)
	if err != nil {
		return nil, err
	}

	colIdx := make([]int, len(stmt.Columns))
	if len(stmt.Columns) == 0 {
		colIdx = make([]int, schema.ColumnCount())
		for i := range colIdx {
			colIdx[i] = i
		}
	} else {
		for i, c := range stmt.Columns {
			idx := schema.ColumnIndex(c.Name.O)
			if idx < 0 {
				return nil, fmt.Errorf("sqltext: column %q: %w", c.Name.O, core.ErrUnknownColumn)
			}
			colIdx[i] = idx
		}
	}

	out := make([]IngestedOp, 0, len(stmt.Lists))
	for _, row := range stmt.Lists {
		if len(row) != len(colIdx) {
			return nil, fmt.Errorf("sqltext: INSERT into %q: %d values for %d columns", name, len(row), len(colIdx))
		}
		op := core.NewInsert(schema, core.Patchset)
		for i, expr := range row {
			v, err := exprToValue(expr)
			if err != nil {
				return nil, err
			}
			if err := op.Set(colIdx[i], v); err != nil {
				return nil, err
			}
		}
		pk := core.ExtractPK(schema, op.Values)
		out = append(out, IngestedOp{Schema: schema, PK: pk, Op: op})
	}
	return out, nil
}

func (ing *Ingester) ingestUpdate(stmt *ast.UpdateStmt) (IngestedOp, error) {
	name, err := tableName(stmt.TableRefs)
	if err != nil {
		return IngestedOp{}, err
	}
	schema, err := ing.lookup(name)
	if err != nil {
		return IngestedOp{}, err
	}

	pk, err := wherePK(schema, stmt.Where)
	if err != nil {
		return IngestedOp{}, err
	}

	op := core.NewUpdate(schema, core.Patchset)
	for _, assign := range stmt.List {
		idx := schema.ColumnIndex(assign.Column.Name.O)
		if idx < 0 {
			return IngestedOp{}, fmt.Errorf("sqltext: column %q: %w", assign.Column.Name.O, core.ErrUnknownColumn)
		}
		v, err := exprToValue(assign.Expr)
		if err != nil {
			return IngestedOp{}, err
		}
		if err := op.SetNew(idx, v); err != nil {
			return IngestedOp{}, err
		}
	}
	return IngestedOp{Schema: schema, PK: pk, Op: op}, nil
}

func (ing *Ingester) ingestDelete(stmt *ast.DeleteStmt) (IngestedOp, error) {
	name, err := tableName(stmt.TableRefs)
	if err != nil {
		return IngestedOp{}, err
	}
	schema, err := ing.lookup(name)
	if err != nil {
		return IngestedOp{}, err
	}

	pk, err := wherePK(schema, stmt.Where)
	if err != nil {
		return IngestedOp{}, err
	}
	return IngestedOp{Schema: schema, PK: pk, Op: core.NewPatchsetDelete()}, nil
}

// tableName pulls the single table name out of a FROM/INTO clause shaped
// like `tbl` with no joins, the only shape this ingester accepts.
func tableName(refs *ast.TableRefsClause) (string, error) {
	join, ok := refs.TableRefs.(*ast.Join)
	if !ok {
		return "", fmt.Errorf("%w: table reference is not a plain table", ErrUnsupportedExpression)
	}
	src, ok := join.Left.(*ast.TableSource)
	if !ok {
		return "", fmt.Errorf("%w: table reference is not a plain table", ErrUnsupportedExpression)
	}
	tn, ok := src.Source.(*ast.TableName)
	if !ok {
		return "", fmt.Errorf("%w: table reference is not a plain table", ErrUnsupportedExpression)
	}
	return tn.Name.O, nil
}

// wherePK requires a WHERE clause that is a conjunction of column = literal
// comparisons covering exactly the schema's primary-key columns, per
// spec.md §7 (MissingWhere, WhereNonPKColumn).
func wherePK(schema *core.NamedSchema, where ast.ExprNode) ([]core.Value, error) {
	if where == nil {
		return nil, fmt.Errorf("sqltext: table %q: %w", schema.TableName(), core.ErrMissingWhere)
	}
	eq := make(map[string]ast.ExprNode)
	if err := collectEquality(where, eq); err != nil {
		return nil, err
	}

	k := core.PKColumnCount(schema)
	pk := make([]core.Value, k)
	filled := make([]bool, k)
	for colName, expr := range eq {
		idx := schema.ColumnIndex(colName)
		if idx < 0 {
			return nil, fmt.Errorf("sqltext: column %q: %w", colName, core.ErrUnknownColumn)
		}
		ord := schema.PKOrdinal(idx)
		if ord == 0 {
			return nil, fmt.Errorf("sqltext: column %q: %w", colName, core.ErrWhereNonPKColumn)
		}
		v, err := exprToValue(expr)
		if err != nil {
			return nil, err
		}
		pk[ord-1] = v
		filled[ord-1] = true
	}
	for _, f := range filled {
		if !f {
			return nil, fmt.Errorf("sqltext: table %q: %w: WHERE does not specify every primary-key column", schema.TableName(), core.ErrMissingWhere)
		}
	}
	return pk, nil
}

func collectEquality(expr ast.ExprNode, out map[string]ast.ExprNode) error {
	bin, ok := expr.(*ast.BinaryOperationExpr)
	if !ok {
		return fmt.Errorf("%w: WHERE clause must be a conjunction of column = literal comparisons", ErrUnsupportedExpression)
	}
	switch bin.Op {
	case opcode.LogicAnd:
		if err := collectEquality(bin.L, out); err != nil {
			return err
		}
		return collectEquality(bin.R, out)
	case opcode.EQ:
		col, lit, ok := columnAndLiteral(bin.L, bin.R)
		if !ok {
			return fmt.Errorf("%w: WHERE comparison must be column = literal", ErrUnsupportedExpression)
		}
		out[col] = lit
		return nil
	default:
		return fmt.Errorf("%w: WHERE operator is not AND or =", ErrUnsupportedExpression)
	}
}

func columnAndLiteral(l, r ast.ExprNode) (string, ast.ExprNode, bool) {
	if c, ok := l.(*ast.ColumnNameExpr); ok {
		return c.Name.Name.O, r, true
	}
	if c, ok := r.(*ast.ColumnNameExpr); ok {
		return c.Name.Name.O, l, true
	}
	return "", nil, false
}

// exprToValue converts a literal or negated-literal expression into a
// core.Value. The only non-literal shape accepted is unary minus applied
// to a literal, needed both for ordinary negative numbers and for
// spec.md §9's documented edge case: `-9223372036854775808` lexes as the
// unary minus of the positive literal `9223372036854775808`, which
// overflows int64 and is parsed as uint64 by the grammar; negating that
// specific value must fold back to math.MinInt64 rather than promoting to
// a float, matching the original ingester's integer/real promotion rules.
func exprToValue(expr ast.ExprNode) (core.Value, error) {
	if un, ok := expr.(*ast.UnaryOperationExpr); ok {
		if un.Op != opcode.Minus {
			return core.Value{}, fmt.Errorf("%w: unary operator is not minus", ErrUnsupportedExpression)
		}
		raw, err := literalRaw(un.V)
		if err != nil {
			return core.Value{}, err
		}
		return negateRaw(raw)
	}
	raw, err := literalRaw(expr)
	if err != nil {
		return core.Value{}, err
	}
	return convertRaw(raw)
}

func literalRaw(expr ast.ExprNode) (interface{}, error) {
	ve, ok := expr.(ast.ValueExpr)
	if !ok {
		return nil, fmt.Errorf("%w: not a literal", ErrUnsupportedExpression)
	}
	return ve.GetValue(), nil
}

const negatedInt64MinMagnitude = uint64(math.MaxInt64) + 1

func negateRaw(raw interface{}) (core.Value, error) {
	switch v := raw.(type) {
	case uint64:
		if v == negatedInt64MinMagnitude {
			return core.Integer(math.MinInt64), nil
		}
		if v > negatedInt64MinMagnitude {
			return core.Real(-float64(v)), nil
		}
		return core.Integer(-int64(v)), nil
	case int64:
		return core.Integer(-v), nil
	case float64:
		return core.Real(-v), nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return core.Value{}, fmt.Errorf("%w: cannot negate %v", ErrUnsupportedExpression, raw)
		}
		return core.Real(-f), nil
	default:
		return core.Value{}, fmt.Errorf("%w: cannot negate %T", ErrUnsupportedExpression, raw)
	}
}

func convertRaw(raw interface{}) (core.Value, error) {
	switch v := raw.(type) {
	case nil:
		return core.Null, nil
	case int64:
		return core.Integer(v), nil
	case uint64:
		if v <= uint64(math.MaxInt64) {
			return core.Integer(int64(v)), nil
		}
		return core.Real(float64(v)), nil
	case float64:
		return core.Real(v), nil
	case string:
		return core.Text(v), nil
	case []byte:
		return core.Blob(v), nil
	case fmt.Stringer:
		// Covers *types.MyDecimal and similar boxed numeric literal types:
		// rendered through their decimal string form rather than a second
		// float64 conversion path.
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return core.Value{}, fmt.Errorf("%w: cannot convert %v", ErrUnsupportedExpression, raw)
		}
		return core.Real(f), nil
	default:
		return core.Value{}, fmt.Errorf("%w: cannot convert literal of type %T", ErrUnsupportedExpression, raw)
	}
}
