// Package resources serves glyph animations and tunables.
//
// A resources directory holds animations/<name>.csv, call/<name>.csv and an
// optional tunables.toml (or tunables.yaml). It is layered over the embedded
// defaults, so a directory only needs the files it changes.
package resources
