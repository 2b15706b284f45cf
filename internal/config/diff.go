package config

import "reflect"

// ConfigDiff describes what changed between two configs. Log level and
// practice settings can be applied on a running process; gateway and provider
// changes need a restart.
type ConfigDiff struct {
	// LogLevelChanged is set when server.log_level differs. NewLogLevel
	// carries the new value.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PracticeChanged is set when the catalog path, language hint, or
	// correction temperature differs.
	PracticeChanged bool

	// RestartRequired is set when discord, provider, or server listen
	// settings differ. These are wired at startup and cannot be swapped live.
	RestartRequired bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.PracticeChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Practice != new.Practice {
		d.PracticeChanged = true
	}

	if old.Discord != new.Discord ||
		old.Server.ListenAddr != new.Server.ListenAddr ||
		!reflect.DeepEqual(old.Server.TLS, new.Server.TLS) ||
		!reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = true
	}

	return d
}
