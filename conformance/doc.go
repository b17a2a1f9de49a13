// Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package conformance provides a self-contained behavioral check suite
// for the table bridge. Each check writes its own fixture files, drives
// one area of the public API, and verifies the observable contract:
// round-trips through every file format, schema extraction, typed
// chunked-column access, slicing and concatenation semantics, streaming
// reader state transitions, and the unified error channel.
//
// The suite exists so alternative host bindings can validate a build of
// the shared library without a Go test harness; the only entry point
// intended for external use is [Run].
package conformance
