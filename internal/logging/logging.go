// Package logging configures the shared logging context of the episim
// packages.
package logging

import (
	"fmt"

	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/logging/logrusl"
	"github.com/mandelsoft/logging/logrusr"
)

// RealmPrefix is the common prefix of every episim realm.
const RealmPrefix = "episim"

var REALM = logging.DefineRealm(RealmPrefix, "epidemic simulator")

// Configure installs a human readable logrus base logger and enables level
// for every episim realm.
func Configure(level string) error {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logcfg := logrusl.Human(true)
	lctx := logging.DefaultContext()
	lctx.SetBaseLogger(logrusr.New(logcfg.NewLogrus()))
	lctx.AddRule(logging.NewConditionRule(l, logging.NewRealmPrefix(RealmPrefix)))
	return nil
}

// Logger returns the logger of the command line surface.
func Logger() logging.Logger {
	return logging.DefaultContext().Logger(REALM)
}
