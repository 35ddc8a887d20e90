package testutil

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logs of packages under test are discarded unless tests run verbosely.
func init() {
	logrus.SetLevel(logrus.TraceLevel)

	for _, arg := range os.Args {
		if arg == "-test.v=true" || arg == "-test.v" {
			return
		}
	}
	logrus.SetOutput(io.Discard)
}

// DisableLogging discards logs until the returned func is called.
func DisableLogging() (reset func()) {
	original := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	return func() {
		logrus.SetOutput(original)
	}
}
