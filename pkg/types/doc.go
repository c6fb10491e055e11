// Package types defines the metadata mapping, configuration, and standard
// error types shared by the tablemeta packages.
//
// types imports nothing else from this module so the engine, the registry
// and the public meta package can all depend on it.
package types
