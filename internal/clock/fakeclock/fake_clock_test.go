package fakeclock_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-estate-session/internal/clock/fakeclock"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_FiresInOrder(t *testing.T) {
	start := time.Unix(1_000, 0)
	c := fakeclock.New(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(time.Second, func() { fired = append(fired, "never") })
	require.True(t, stopped.Stop())
	require.False(t, stopped.Stop())

	require.Equal(t, 2, c.Pending())
	c.Advance(1500 * time.Millisecond)
	require.Equal(t, []string{"a"}, fired)

	c.Advance(time.Second)
	require.Equal(t, []string{"a", "b"}, fired)
	require.Equal(t, start.Add(2500*time.Millisecond), c.Now())
	require.Zero(t, c.Pending())
}

func TestFakeClock_ZeroDelayFiresOnNextAdvance(t *testing.T) {
	c := fakeclock.New(time.Unix(0, 0))
	ran := false
	c.AfterFunc(0, func() { ran = true })
	c.Advance(0)
	require.True(t, ran)
}

func TestFakeClock_CallbackSchedulesFollowUp(t *testing.T) {
	c := fakeclock.New(time.Unix(0, 0))
	count := 0
	var schedule func()
	schedule = func() {
		count++
		if count < 3 {
			c.AfterFunc(time.Second, schedule)
		}
	}
	c.AfterFunc(time.Second, schedule)
	c.Advance(10 * time.Second)
	require.Equal(t, 3, count)
}
