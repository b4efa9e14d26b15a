// Package types defines configuration, snapshot, and listing types shared
// by the storagereport commands, along with the standard errors they return.
package types
