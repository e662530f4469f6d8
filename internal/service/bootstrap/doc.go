// Package bootstrap prepares a Python environment in a fixed sequence.
//
// It upgrades pip to the latest release, installs every dependency declared
// in the requirements manifest and finally installs one named package with
// its optional extras. Steps run strictly in order, each as a separate pip
// invocation, and the first non-zero exit halts the run. Optional progress
// markers on stdout wrap the sequence.
package bootstrap
