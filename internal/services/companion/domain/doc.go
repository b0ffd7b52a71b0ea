// Package domain models the companion aggregate and its economy rules.
//
// Everything here is pure: stat math, coin accounting, the evolution clock,
// and the tagged action-log variants. Time and randomness are always passed
// in by the caller so stored data can never drift from a hidden clock and
// reward rolls stay server-authoritative.
package domain
