package registry

import (
	"github.com/domiranet/domirad/infrastructure/logger"
)

var log = logger.RegisterSubSystem("RGST")
