package librustzcash

import "github.com/sirupsen/logrus"

// Logger is the logger used by all subpackages. It defaults to the
// logrus standard logger; applications can swap it out or tune its
// level and formatter.
var Logger *logrus.Logger

func init() {
	Logger = logrus.StandardLogger()
}

// GetLogger returns the active logger
func GetLogger() *logrus.Logger {
	return Logger
}

// SetLogger replaces the logger used by all subpackages
func SetLogger(l *logrus.Logger) {
	Logger = l
}
