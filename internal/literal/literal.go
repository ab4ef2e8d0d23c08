// Package literal renders core.Value as SQL literal text, for the
// dialects in internal/dialect to build executable DML from store
// operations.
package literal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sessiondiff/internal/core"
)

// Render returns v's SQL literal text:
//
//	Integer  decimal
//	Real     shortest round-tripping form (exponent form for very large or
//	         very small magnitudes), forced ".0" if it has neither a
//	         decimal point nor an exponent, NaN -> NULL, +-Inf -> +-9e999
//	Text     single-quoted, internal quotes doubled
//	Blob     uppercase X'HH...' hex
//	Null, Undefined  NULL
func Render(v core.Value) string {
	switch v.Tag() {
	case core.TagInteger:
		return strconv.FormatInt(v.Int(), 10)
	case core.TagReal:
		return renderReal(v.Float())
	case core.TagText:
		return renderText(v.String())
	case core.TagBlob:
		return renderBlob(v.Bytes())
	default:
		return "NULL"
	}
}

func renderReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NULL"
	case math.IsInf(f, 1):
		return "9e999"
	case math.IsInf(f, -1):
		return "-9e999"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func renderText(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString("''")
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

func renderBlob(b []byte) string {
	var sb strings.Builder
	sb.WriteString("X'")
	for _, c := range b {
		fmt.Fprintf(&sb, "%02X", c)
	}
	sb.WriteByte('\'')
	return sb.String()
}
