package optimization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewErrorf("Engine.iterate", "bad point %v", []float64{1})
	assert.Equal(t, "Engine.iterate: bad point [1]", err.Error())

	base := errors.New("boom")
	wrapped := WrapError(base, "GP.Fit")
	assert.Contains(t, wrapped.Error(), "GP.Fit")
	assert.ErrorIs(t, wrapped, base)

	assert.Nil(t, WrapError(nil, "noop"))
}

func TestInvalidParamError(t *testing.T) {
	err := &InvalidParamError{Param: "max_iteration", Reason: "must be at least 1"}
	assert.Equal(t, `invalid parameter "max_iteration": must be at least 1`, err.Error())

	var target *InvalidParamError
	assert.ErrorAs(t, error(err), &target)
}
