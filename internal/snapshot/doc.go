// Package snapshot persists the state store to a YAML file.
//
// A Saver writes the store after changes settle; a Watcher reloads it when
// another process edits the file. Writes are atomic (temp file and rename)
// and the Watcher recognises the Saver's own writes by content, so the two
// can run against the same file without feeding each other.
package snapshot
