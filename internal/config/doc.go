// Package config defines bootstrap settings used by the CLI and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the python interpreter, the dependency manifest path
// and the named package spec installed after it.
package config
