package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rapid-timing/rapid/internal/session"
)

func TestHandleWithReadSeesCurrentSession(t *testing.T) {
	s := &session.Session{ID: 42}
	h := session.NewHandle(s)

	var seen uint64
	h.WithRead(func(cur *session.Session) {
		seen = cur.ID
	})
	assert.Equal(t, uint64(42), seen)
}

func TestHandleWithWriteReplacesSession(t *testing.T) {
	h := session.NewHandle(nil)

	h.WithWrite(func(cur **session.Session) {
		*cur = &session.Session{ID: 99}
	})

	assert.Equal(t, uint64(99), h.Snapshot().ID)
}

func TestHandleWithWriteRecoversPanic(t *testing.T) {
	h := session.NewHandle(&session.Session{ID: 1})

	assert.NotPanics(t, func() {
		h.WithWrite(func(cur **session.Session) {
			panic("boom")
		})
	})

	// the lock must not be left held after a recovered panic
	assert.NotPanics(t, func() {
		h.WithRead(func(cur *session.Session) {})
	})
}
