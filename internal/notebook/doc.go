// Package notebook implements the notebook directory: the set of named
// buffers, the cap on how many may exist, and which one is active.
//
// All connected clients view the active notebook. Notebooks are never deleted.
package notebook
