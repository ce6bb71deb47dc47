// Package memory holds the in-process transcript of a single session.
//
// Model:
//   - Only text turns are kept (role + text). Nothing here is persisted.
//   - Every mutation returns a Patch; a failed operation reverts its patch
//     exactly once, restoring the transcript it started from.
package memory
