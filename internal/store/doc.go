// Package store implements the buffer store: named in-memory text buffers with
// a per-buffer size cap, synchronous whole-record persistence and statistics
// recomputed on every write.
//
// Backends:
//   - FilePersister: one raw text file per buffer (notebook_<name>.txt), or a
//     single fixed shared_content.txt in single-buffer mode
//   - PostgresPersister: one row per buffer in the notebooks table
//
// Every write replaces the whole stored record; nothing is appended or patched.
package store
