// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

const notAvailable = "N/A"

// BuildInfo carries immutable build-time metadata injected with linker flags.
// Empty values are reported as "N/A".
type BuildInfo struct {
	version string
	date    string
	commit  string
}

// NewBuildInfo constructs [BuildInfo] from the provided build metadata.
func NewBuildInfo(version, date, commit string) BuildInfo {
	return BuildInfo{
		version: orNotAvailable(version),
		date:    orNotAvailable(date),
		commit:  orNotAvailable(commit),
	}
}

func (b BuildInfo) Version() string { return b.version }
func (b BuildInfo) Date() string    { return b.date }
func (b BuildInfo) Commit() string  { return b.commit }

// MarshalJSON exposes the build metadata on the ops endpoint.
func (b BuildInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version string `json:"version"`
		Date    string `json:"date"`
		Commit  string `json:"commit"`
	}{b.version, b.date, b.commit})
}

func orNotAvailable(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
