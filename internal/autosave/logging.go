package autosave

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("episim/autosave", "pre-run model snapshots")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
