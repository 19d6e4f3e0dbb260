// Package home implements the shell's home model: the registry of
// currently running activities.
//
// An activity is discovered through two independent event sources that
// describe the same logical instance: the windowing system reports
// top-level windows, and the session bus reports when the activity
// process claims its service name. Neither is guaranteed to arrive
// first. The engine reconciles the two streams:
//
//   - a window with no resolvable service becomes a placeholder record
//   - a service claiming a name for a placeholder's window promotes the
//     placeholder into a bound record
//   - a launch intent announced before any window exists creates a
//     windowless bound record, reclaimed by a timer if nothing binds
//
// The engine is the single writer of the registry. Activities are kept
// in launch order; the focused activity is tracked and old/new services
// are told about activation changes. Change notifications are pushed to
// a Notifier for fan-out to shell UI observers.
package home
