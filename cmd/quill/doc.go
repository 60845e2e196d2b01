// Package main hosts the Quill CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the quilld daemon: status inspection, channel listing,
// participant eviction, journal queries, and configuration scaffolding.
// It centralizes configuration resolution and socket discovery so
// subcommands can focus on output formatting.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
