// Package runstore records pipeline runs and notification outcomes in SQLite.
//
// The store is append-mostly: a run row is created when a request is accepted
// and updated as it moves through states. Notification outcomes reference the
// run they belong to. The schema is versioned; a mismatched database must be
// deleted.
package runstore
