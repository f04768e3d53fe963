package ai

import (
	"log"
	"os"
	"strconv"
)

const debugEnv = "DOCCHAT_DEBUG"

// debugLog traces gateway internals when DOCCHAT_DEBUG is truthy.
func debugLog(format string, args ...any) {
	if on, _ := strconv.ParseBool(os.Getenv(debugEnv)); !on {
		return
	}
	log.Printf("[ai] "+format, args...)
}
