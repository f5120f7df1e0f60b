// Package config holds the boot configuration of the bridge: the managed
// classpath, runtime options, worker pool size, proxy timeout, overload
// resolution strategy and log level.
//
// Configuration comes from a YAML file (Load), from raw host values
// (FromHost) or from Default. Every source goes through the same shape
// checks, so "classpath must be an array" is reported the same way
// whether it came from a file or from host code.
package config
