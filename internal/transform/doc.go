// Package transform models the identity a tracked script or notebook declares
// and decides how that identity relates to what was last saved for the file.
//
// Reconcile is a pure function: given the declared identity (nil when the
// file never declared one) and the recorded state (nil when the file was
// never saved) it returns Unrecorded, Current, or Stale, or fails with
// ErrNotTracked or an IdentityMismatchError. Persistence lives in the store
// package and orchestration in tracking; nothing here touches disk except the
// source helpers that read a file's declared identity.
package transform
