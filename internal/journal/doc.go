// Package journal persists engine events to a local SQLite database so
// a watch session leaves an inspectable record behind. Each row keeps
// the raw event URL plus the decoded tag, attribute name and object id
// for querying.
//
// One journal file belongs to one process at a time. Open takes a
// flock sidecar next to the database and fails with ErrLocked when
// another process already holds it, which keeps concurrent watchers
// from interleaving writes through separate connections.
package journal
