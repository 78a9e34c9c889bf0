// Package tracking runs the track, save and stage workflows of a transform.
//
// Track is what happens when a script calls ln.track(): the identity the
// file declares is reconciled against the identity saved for the file and,
// when allowed, a run is appended to the execution trace. Save reconciles
// the identity of the latest run against the saved identity and, when
// allowed, uploads the source snapshot and saves the identity. Stage fetches
// a saved source back into a working directory.
//
// Every workflow returns an Outcome holding the user-facing message and the
// process exit code, so the command layer never interprets reconciliation
// results itself.
package tracking
