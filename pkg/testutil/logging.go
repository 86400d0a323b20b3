package testutil

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevelEnvName overrides the log level of test runs
const LogLevelEnvName = "TEST_LOG_LEVEL"

// Test output is discarded unless the run is verbose
func init() {
	level := logrus.TraceLevel
	if configured, err := logrus.ParseLevel(os.Getenv(LogLevelEnvName)); err == nil {
		level = configured
	}
	logrus.SetLevel(level)

	if !isVerbose() {
		logrus.StandardLogger().SetOutput(io.Discard)
	}
}

func isVerbose() bool {
	for _, arg := range os.Args {
		if arg == "-test.v=true" || arg == "-test.v" {
			return true
		}
	}
	return false
}
