package state

import (
	"github.com/domiranet/domirad/infrastructure/logger"
)

var log = logger.RegisterSubSystem("STAT")
