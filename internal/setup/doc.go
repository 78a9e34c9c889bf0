// Package setup manages the local settings the CLI works against: the
// logged-in user, the instances known on this machine, the current instance,
// and the cache directory.
//
// Settings live as TOML files in the settings directory. Every write happens
// under an advisory file lock and replaces the file atomically, so concurrent
// CLI invocations never observe half-written settings.
//
// Nothing here talks to the hub. Login records the user locally and register
// only marks the instance.
package setup
