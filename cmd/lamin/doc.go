// Package main hosts the lamin CLI entrypoint and command graph.
//
// Settings-style commands (login, init, load, delete, ...) are declared in a
// single table and delegate straight to internal/setup. The track, save and
// stage commands drive internal/tracking and turn its Outcome into stdout
// text and a process exit code.
package main
