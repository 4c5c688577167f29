// Package store holds the settings value the running program reads from and
// lets a reload replace it atomically.
package store
