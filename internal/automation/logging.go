package automation

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("episim/automation", "scripted scenarios and Monte Carlo runs")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
