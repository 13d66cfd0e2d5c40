// Package buildinfo contains build-time metadata kept apart from user configuration.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// Set with -ldflags "-X github.com/bioscout/bioscout/internal/buildinfo.version=..."
var (
	version   string
	buildDate string
)

// BuildInfo provides access to build-time metadata.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
}

// Context holds build-time metadata injected at startup.
type Context struct {
	Version   string
	BuildDate string
}

// NewContext returns a Context for the given values.
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// Current returns the metadata linked into this binary, falling back to the
// module version recorded by the Go toolchain.
func Current() *Context {
	v := version
	if v == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return NewContext(v, buildDate)
}

// GetVersion implements BuildInfo.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// Release returns the Sentry release name, e.g. "bioscout@1.2.0".
func (c *Context) Release() string {
	return "bioscout@" + c.GetVersion()
}

// String renders the version line printed by the CLI.
func (c *Context) String() string {
	return fmt.Sprintf("bioscout %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
