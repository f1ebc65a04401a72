// Package library keeps an in-memory snapshot of a music library (tracks,
// albums, artists, genres) synchronized with the backing store.
//
// The [Coordinator] owns the four published snapshots and performs
// single-flight, cancellable reloads, serving the last good snapshot when
// storage fails. [IsExcluded] implements profile-scoped folder blacklisting
// and [Notifier] broadcasts invalidation signals to dependent caches.
package library
