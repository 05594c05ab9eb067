package sim

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("episim/sim", "simulation runs")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
