// Package tablekit exposes module-level metadata.
package tablekit

// Version is the current release version.
const Version = "0.1.0"
