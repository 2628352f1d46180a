// Package config provides configuration loading, merging, and validation
// facilities for the license keeper.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file
//
// Settings left unset by every source receive the defaults declared in this
// package. The main entry point is [GetStructuredConfig].
package config
