// Package command implements the tempcache command line: inspecting,
// sweeping and health checking a cache directory shared with programs that
// memoize through package cache.
package command
