// Package http implements the ops listener of the license keeper.
//
// The listener is read-only: health, build version, license statistics,
// the backup list and the Prometheus scrape endpoint. Request tracing and
// access logging are applied here before the service layer is called.
package http
