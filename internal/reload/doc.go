// Package reload re-reads the settings file on request, on window focus or
// when the file changes on disk, and publishes accepted documents to the
// store. A rejected document leaves the previous settings in effect.
package reload
