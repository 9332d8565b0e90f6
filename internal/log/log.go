// Package log wraps github.com/op/go-logging with the small set of
// leveled helpers the rest of the server uses.
package log

import (
	"os"

	"github.com/op/go-logging"
)

const moduleName = "redisd"

const (
	CRITICAL = logging.CRITICAL
	ERROR    = logging.ERROR
	WARNING  = logging.WARNING
	NOTICE   = logging.NOTICE
	INFO     = logging.INFO
	DEBUG    = logging.DEBUG
)

var logger = logging.MustGetLogger(moduleName)
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} ▶ %{level:.4s} %{id:03x}%{color:reset} %{message}`,
)

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	logging.SetBackend(backendFormatter)
}

// SetLevel sets the current global log level for the server's logger.
func SetLevel(level logging.Level) {
	logging.SetLevel(level, moduleName)
}

func Criticalf(format string, args ...interface{}) { logger.Criticalf(format, args...) }
func Errorf(format string, args ...interface{})    { logger.Errorf(format, args...) }
func Warningf(format string, args ...interface{})  { logger.Warningf(format, args...) }
func Noticef(format string, args ...interface{})   { logger.Noticef(format, args...) }
func Infof(format string, args ...interface{})     { logger.Infof(format, args...) }
func Debugf(format string, args ...interface{})    { logger.Debugf(format, args...) }
