package baseband

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestLogEnabled(t *testing.T) {
	defer SetLogger(nil)

	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.InfoLevel)
	SetLogger(l)
	assert.False(t, logEnabled(logrus.DebugLevel))
	assert.True(t, logEnabled(logrus.WarnLevel))

	SetLogger(l.WithField("radio", "sim"))
	assert.False(t, logEnabled(logrus.DebugLevel))

	// Completions of a quiet controller leave nothing behind.
	ctrl := NewController(nopRadio{}, DefaultConfig())
	op := &Operation{Kind: OpTest, Payload: &TestOp{Buf: []byte{0}, Packets: 1}}
	ctrl.EnableRoles(RoleTest)
	assert.NoError(t, ctrl.Execute(op))
	ctrl.complete(ctrl.gen, Event{Kind: EventTxDone, Status: Success})
	assert.Nil(t, ctrl.Current())
	assert.Empty(t, hook.AllEntries())

	l.SetLevel(logrus.DebugLevel)
	assert.True(t, logEnabled(logrus.DebugLevel))
}
