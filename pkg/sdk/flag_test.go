package sdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlag_NilIsDisabled(t *testing.T) {
	var f *Flag
	assert.False(t, f.IsEnabled())
	assert.Equal(t, "d", f.GetVariable("x", "d"))
	assert.Empty(t, f.GetVariables())
}

func TestFlag_GetVariables_Copy(t *testing.T) {
	f := &Flag{Enabled: true, Variables: map[string]any{"a": 1, "n": nil}}

	vars := f.GetVariables()
	vars["a"] = 2
	assert.Equal(t, 1, f.Variables["a"])

	// a null variable falls back to the default
	assert.Equal(t, "d", f.GetVariable("n", "d"))
}
