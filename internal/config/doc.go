// Package config loads, normalizes, and validates multinbs run configuration.
//
// It supplies repository defaults mirroring the library's stratification
// parameters, expands user paths (including tilde shortcuts), reads TOML
// files, and translates the file sections into a multinbs.Config via Params.
// Range checks run at load time so a bad parameter fails before any cohort
// data is read.
package config
