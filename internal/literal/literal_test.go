package literal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"sessiondiff/internal/core"
)

func TestRenderInteger(t *testing.T) {
	assert.Equal(t, "42", Render(core.Integer(42)))
	assert.Equal(t, "-9223372036854775808", Render(core.Integer(math.MinInt64)))
}

func TestRenderReal(t *testing.T) {
	assert.Equal(t, "1.5", Render(core.Real(1.5)))
	assert.Equal(t, "2.0", Render(core.Real(2)))
	assert.Equal(t, "9e999", Render(core.Real(math.Inf(1))))
	assert.Equal(t, "-9e999", Render(core.Real(math.Inf(-1))))
}

func TestRenderRealNaNIsNull(t *testing.T) {
	assert.Equal(t, "NULL", Render(core.Real(math.NaN())))
}

func TestRenderText(t *testing.T) {
	assert.Equal(t, "'hello'", Render(core.Text("hello")))
	assert.Equal(t, "'it''s'", Render(core.Text("it's")))
}

func TestRenderBlob(t *testing.T) {
	assert.Equal(t, "X'DEADBEEF'", Render(core.Blob([]byte{0xDE, 0xAD, 0xBE, 0xEF})))
	assert.Equal(t, "X''", Render(core.Blob(nil)))
}

func TestRenderNullAndUndefined(t *testing.T) {
	assert.Equal(t, "NULL", Render(core.Null))
	assert.Equal(t, "NULL", Render(core.Undefined))
}
