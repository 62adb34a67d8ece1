package webgpu

import (
	"log"
	"os"
)

// logger is the package-level logger for device-lost notices and skipped
// dispatches. It is never used on the hot read/write/dispatch path.
// Callers may replace it, e.g. to route through an application logger.
var logger = log.New(os.Stderr, "", log.LstdFlags)
