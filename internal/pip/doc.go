// Package pip abstracts the external Python package manager behind the
// Manager interface so the bootstrap runner can be exercised against fakes.
//
// ExecManager is the real implementation: it shells out to "<python> -m pip"
// for the three operations the bootstrap depends on and reports failures as
// CommandError values carrying the observed process exit code. Manifest
// contents and resolution are entirely pip's concern; nothing here parses
// the requirements file.
package pip
