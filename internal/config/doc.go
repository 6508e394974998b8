// Package config loads Quantara's runtime configuration.
//
// Values come from three sources, later ones overriding earlier ones:
//
//  1. built-in defaults (Default)
//  2. a TOML file, usually quantara.toml
//  3. QUANTARA_* environment variables
//
// A missing file is not an error. Durations accept Go syntax ("250ms",
// "5s") in both the file and the environment:
//
//	[snapshot]
//	path = "state.yaml"
//	autosave_delay = "2s"
//
//	QUANTARA_SNAPSHOT_AUTOSAVE_DELAY=500ms
package config
