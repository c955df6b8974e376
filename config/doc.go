// Package config loads tempcache settings from a YAML file and the
// environment and turns them into cache and observe configurations.
//
// Settings are layered: defaults, then the file, then TEMPCACHE_*
// environment variables. Command line flags are applied by the caller on
// top. The cache directory may reference environment variables as ${VAR};
// a reference to an unset variable is an error rather than an empty path.
package config
