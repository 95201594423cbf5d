// Package domain defines the core domain types shared across the dashboard core.
//
// This package holds plain data types (players, squads, fixtures, live-feed
// topic and message identifiers). No implementation code - just the shapes
// that cache, live, and projection exchange. Keeping them here prevents
// circular imports between those packages.
package domain
