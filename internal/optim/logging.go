package optim

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("episim/optim", "parameter sweeps")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
