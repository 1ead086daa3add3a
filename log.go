package baseband

import "github.com/sirupsen/logrus"

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used by the controller and the engines. Engine
// transitions are logged at debug level, so a logger at info level or above
// keeps the completion path quiet.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

// logEnabled reports whether the logger emits entries at level. Callers on
// the completion path check it before building fields.
func logEnabled(level logrus.Level) bool {
	switch l := logger.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(level)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(level)
	}
	return true
}
