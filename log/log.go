// Package log is a small namespaced console logger. Debug output is off by
// default and enabled either with the DEBUG flag or by setting the DEBUG
// environment variable to a namespace glob such as "delegator*".
package log

import (
	_log "log"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/gookit/color"
)

type Log struct {
	*_log.Logger

	DEBUG bool

	mu              sync.RWMutex // protects the following fields
	prefix          string
	namespaceRegexp *regexp.Regexp
}

func NewLog(prefix string) *Log {
	l := &Log{
		Logger: _log.New(os.Stderr, "", 0),
	}

	if prefix != "" {
		l.SetPrefix(prefix)
	}

	if debug := os.Getenv("DEBUG"); debug != "" {
		l.SetNamespaces(debug)
	}
	return l
}

// SetNamespaces enables debug output for prefixes matching the comma separated
// glob list, e.g. "delegator,js*". An empty list disables namespace matching.
func (d *Log) SetNamespaces(globs string) {
	var parts []string
	for _, g := range strings.Split(globs, ",") {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, strings.ReplaceAll(regexp.QuoteMeta(g), `\*`, `.*`))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(parts) == 0 {
		d.namespaceRegexp = nil
		return
	}
	d.namespaceRegexp = regexp.MustCompile("^(" + strings.Join(parts, "|") + ")$")
}

func (d *Log) checkNamespace(namespace string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.namespaceRegexp != nil {
		return d.namespaceRegexp.MatchString(namespace)
	}
	return false
}

// DebugEnabled reports whether Debug writes anything.
func (d *Log) DebugEnabled() bool {
	return d.DEBUG || d.checkNamespace(d.Prefix())
}

// Debug logs only when debugging is enabled for this namespace.
func (d *Log) Debug(message string, args ...any) {
	if d.DebugEnabled() {
		d.Logger.Println(color.Debug.Sprintf(message, args...))
	}
}

// Info logs an informational line.
func (d *Log) Info(message string, args ...any) {
	d.Logger.Println(color.Info.Sprintf(message, args...))
}

// Warning logs a warning line.
func (d *Log) Warning(message string, args ...any) {
	d.Logger.Println(color.Warn.Sprintf(message, args...))
}

// Error logs an error line.
func (d *Log) Error(message string, args ...any) {
	d.Logger.Println(color.Danger.Sprintf(message, args...))
}

// Fatal logs and exits.
func (d *Log) Fatal(message string, args ...any) {
	d.Logger.Fatal(color.Error.Sprintf(message, args...))
}

// Prefix returns the namespace of the logger.
func (d *Log) Prefix() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.prefix
}

// SetPrefix sets the namespace and output prefix of the logger.
func (d *Log) SetPrefix(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prefix = prefix

	d.Logger.SetPrefix(prefix + " ")
}
