package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHour12h(t *testing.T) {
	h, err := ParseHour("9:00 am")
	require.NoError(t, err)
	assert.Equal(t, 9, h)

	h, err = ParseHour("12:00 pm")
	require.NoError(t, err)
	assert.Equal(t, 12, h)

	h, err = ParseHour("12:00 am")
	require.NoError(t, err)
	assert.Equal(t, 0, h)

	h, err = ParseHour("4:30pm")
	require.NoError(t, err)
	assert.Equal(t, 16, h)
}

func TestParseHour24h(t *testing.T) {
	h, err := ParseHour("14:00")
	require.NoError(t, err)
	assert.Equal(t, 14, h)

	h, err = ParseHour("8")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
}

func TestParseHourRejectsAmbiguousInput(t *testing.T) {
	_, err := ParseHour("")
	assert.Error(t, err)

	_, err = ParseHour("13:00 pm")
	assert.Error(t, err)

	_, err = ParseHour("nonsense")
	assert.Error(t, err)
}

func TestParseDayRejectsUnknownLabel(t *testing.T) {
	_, err := ParseDay("Funday")
	assert.Error(t, err)

	d, err := ParseDay("friday")
	require.NoError(t, err)
	assert.Equal(t, "Friday", d.String())
}

func TestIsLabBlockStart(t *testing.T) {
	assert.True(t, IsLabBlockStart(8))
	assert.True(t, IsLabBlockStart(12))
	assert.True(t, IsLabBlockStart(16))
	assert.False(t, IsLabBlockStart(9))
}
