package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", FormatClock(-3))
	assert.Equal(t, "1:05", FormatClock(65.9))
	assert.Equal(t, "1:31:00", FormatClock(5460))
}

func TestFilterQueryOnlyWhenActive(t *testing.T) {
	f := NewFilter()
	assert.Empty(t, f.Query())
	f.Focus()
	assert.True(t, f.Editing())
	f.input.SetValue("night")
	f.Lock()
	assert.False(t, f.Editing())
	assert.Equal(t, "night", f.Query())
	f.Clear()
	assert.Empty(t, f.Query())
}
