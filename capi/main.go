// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Command capi builds the bridge as a C shared library. Build with
//
//	go build -buildmode=c-shared -o libtablebridge.so ./capi
//
// Every exported symbol is declared in capi.go; the generated header is
// the C ABI contract for host runtimes.
package main

func main() {}
