package storage

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("episim/storage", "run archive")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
