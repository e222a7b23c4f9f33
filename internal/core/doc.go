// Package core orchestrates fiche generation.
//
// The package is independent of any UI or transport layer: the web handlers
// and tests drive it through [Service].
//
// # Generation
//
// [Service.Generate] runs one batch:
//
//  1. Fetch the raw grid from the configured [source.Source]
//  2. Order rows newest first and resolve headers with [sheet.Requisitions]
//  3. Generate one fiche per row, at most Config.LLM.Concurrency at a time
//  4. Save each fiche; rows that fail are reported, not fatal
//
// Batches themselves are limited by a [BatchLimiter] so that two people
// pressing "generate" do not double the load on the completion API.
//
// # Error Handling
//
// Technical errors are mapped to user-facing French messages with [MapError].
// Each category has a code for support reference:
//
//   - SRC001-SRC003: spreadsheet access
//   - LLM001-LLM004: completion API
//   - DB001-DB002: storage
//   - REQ001-REQ005: request handling (not found, busy, timeout, cancelled, throttled)
package core
