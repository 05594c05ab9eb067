package experiment

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("episim/experiment", "model runs and comparisons")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
