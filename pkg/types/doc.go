// Package types defines the Tracker interface, entity types, filters, and
// standard errors for the chainlink issue tracker.
package types
