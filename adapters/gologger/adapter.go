package gologger

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

const rootLoggerName = "connector"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ResolveComponent resolves a logger named connector.<component>.
func ResolveComponent(component string, provider glog.LoggerProvider, logger glog.Logger) glog.Logger {
	_, resolved := Resolve(ComponentName(component), provider, logger)
	return resolved
}

func ComponentName(component string) string {
	component = strings.Trim(strings.TrimSpace(component), ".")
	if component == "" {
		return rootLoggerName
	}
	if component == rootLoggerName || strings.HasPrefix(component, rootLoggerName+".") {
		return component
	}
	return rootLoggerName + "." + component
}
