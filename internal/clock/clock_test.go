package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClockReportsInjectedTime(t *testing.T) {
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := Fixed(want)
	assert.Equal(t, want, c.Now())
}

func TestUTCRoundTrip(t *testing.T) {
	utc := time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC)
	local := FromUTC(utc)
	assert.Equal(t, 9, local.Hour())
	assert.Equal(t, utc, ToUTC(local))
}
