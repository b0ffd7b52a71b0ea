// Package app implements the companion service operations.
//
// Each operation resolves the caller's identity, loads current state from
// storage, runs the domain rules, and commits one atomic write (state change
// plus log append) or nothing at all. There is no background execution:
// evolution stage and daily-reset boundaries are derived from stored
// timestamps against the injected clock on every call.
package app
