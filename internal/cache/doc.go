// Package cache wraps the shared cache datastore used by the Kollab backend.
//
// The package provides:
//
//   - Client: a thin typed wrapper over the datastore with TTL-bound set,
//     atomic increment, pattern deletion via cursor scans, and a distributed
//     try-lock built on SET NX with token-compared release.
//   - Typed entries with an explicit negative sentinel, so "verified absent"
//     is distinguishable from "not cached".
//   - GetOrCompute: the get-or-compute primitive with stampede protection
//     that backs every list endpoint.
//
// Every read degrades to "absent" when the datastore is unreachable and every
// write failure is logged rather than propagated; callers are correct when
// the cache behaves as empty.
package cache
