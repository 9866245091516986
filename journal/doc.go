// Package journal holds the folder registry and the per-folder change journals.
//
// Every folder carries a modify index and an append-only journal. Appending
// entries stamps each one with the next modseq (modify index + 1) so that the
// journal stays sorted by modseq in insertion order. A client that lost its
// live notification stream can then catch up with GetUpdates, asking for
// everything after the last modseq it saw.
//
// # Thread Safety
//
//   - The folder map is an xsync.MapOf; lookups never block writers.
//   - Each folder guards its (ModifyIndex, Journal) pair with its own mutex,
//     so concurrent batches on one folder are applied one after another and
//     each batch receives a contiguous modseq range.
//
// Journals are kept in memory only and are never compacted.
package journal
