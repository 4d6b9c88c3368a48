// Package sqlite opens a SQLite database file and serves it through the
// Bun store with the SQLite dialect. It is the default backend of the
// queuectl command: a single file shared by every worker process on a
// host.
//
// Unlike store/bun, the Store returned by Open owns its database handle
// and closes it on Close:
//
//	s, err := sqlite.Open("queue.db")
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := s.Migrate(ctx); err != nil {
//	    return err
//	}
//
// The file is opened in WAL mode with a busy timeout so concurrent worker
// processes wait for the write lock instead of failing.
package sqlite
