package sqltext

import "errors"

// ErrUnsupportedStatement is returned for any parsed statement that is not
// a bare INSERT, UPDATE, or DELETE — CREATE TABLE and the rest of DDL in
// particular, per spec.md §4.6: "The ingester never accepts CREATE TABLE or
// DDL; schemas are provided programmatically."
var ErrUnsupportedStatement = errors.New("sqltext: unsupported statement")

// ErrUnsupportedExpression is returned when a value or WHERE expression is
// not one of the literal/negated-literal/column-equality shapes this
// ingester understands.
var ErrUnsupportedExpression = errors.New("sqltext: unsupported expression")
