// Package testlog configures quiet logging for tests. Set
// SIGMSG_LOG_LEVEL to re-enable output when debugging a test run.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/andre-c-andersen/sigmsg/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Msg("start")
}
