/* abf - ACL-based multi-link forwarding engine. */

package core

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
)

var shouldPrintTraceLogs = false
var logLevel log.Level

// InitLogger initializes the package-level logger from configuration.
func InitLogger() {
	log.SetHandler(text.New(os.Stdout))

	logLevelString := GetConfigStringDefault("engine.log_level", "INFO")

	var err error
	logLevel, err = log.ParseLevel(logLevelString)
	if err == nil {
		log.SetLevel(logLevel)
	} else if logLevelString == "TRACE" {
		// apex/log has no TRACE level; fake it with DEBUG gated by a flag.
		log.SetLevel(log.DebugLevel)
		shouldPrintTraceLogs = true
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// LogFatal logs a message at the FATAL level and exits.
func LogFatal(module interface{}, args ...interface{}) {
	if logLevel <= log.FatalLevel {
		log.Fatal(format(module, args))
	}
}

// LogError logs a message at the ERROR level.
func LogError(module interface{}, args ...interface{}) {
	if logLevel <= log.ErrorLevel {
		log.Error(format(module, args))
	}
}

// LogWarn logs a message at the WARN level.
func LogWarn(module interface{}, args ...interface{}) {
	if logLevel <= log.WarnLevel {
		log.Warn(format(module, args))
	}
}

// LogInfo logs a message at the INFO level.
func LogInfo(module interface{}, args ...interface{}) {
	if logLevel <= log.InfoLevel {
		log.Info(format(module, args))
	}
}

// LogDebug logs a message at the DEBUG level.
func LogDebug(module interface{}, args ...interface{}) {
	if logLevel <= log.DebugLevel {
		log.Debug(format(module, args))
	}
}

// LogTrace logs a message at the TRACE level (DEBUG, gated separately).
func LogTrace(module interface{}, args ...interface{}) {
	if shouldPrintTraceLogs {
		log.Debug(format(module, args))
	}
}

func format(module interface{}, args []interface{}) string {
	msg := fmt.Sprint(args...)
	return fmt.Sprintf("[%v] %s", module, msg)
}
