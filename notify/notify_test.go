package notify_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-estate-session/notify"
)

func TestChannel_DropsWhenFull(t *testing.T) {
	ch := notify.NewChannel(1)
	first := notify.NewEvent(notify.KindSessionExpired, "alice", nil, time.Now())
	second := notify.NewEvent(notify.KindLoginFailed, "alice", nil, time.Now())

	ch.Notify(first)
	require.NotPanics(t, func() { ch.Notify(second) })

	require.Equal(t, first.ID, (<-ch.Events()).ID)
	select {
	case e := <-ch.Events():
		t.Fatalf("unexpected event %v", e.Kind)
	default:
	}
}

func TestMulti_FansOut(t *testing.T) {
	var got []notify.Kind
	record := notify.Func(func(e notify.Event) { got = append(got, e.Kind) })

	notify.Multi{record, notify.Discard{}, record}.Notify(notify.NewEvent(notify.KindLoginFailed, "", nil, time.Now()))
	require.Equal(t, []notify.Kind{notify.KindLoginFailed, notify.KindLoginFailed}, got)
}

func TestLog_WritesMessage(t *testing.T) {
	var buf bytes.Buffer
	l := notify.Log{Logger: zerolog.New(&buf)}

	l.Notify(notify.NewEvent(notify.KindSessionExpired, "bob", errors.New("refresh rejected"), time.Now()))

	out := buf.String()
	require.Contains(t, out, "Your session has expired.")
	require.Contains(t, out, `"login":"bob"`)
	require.Contains(t, out, "refresh rejected")
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := notify.NewEvent(notify.KindSessionExpired, "", nil, time.Now())
	b := notify.NewEvent(notify.KindSessionExpired, "", nil, time.Now())
	require.NotEqual(t, a.ID, b.ID)
}
