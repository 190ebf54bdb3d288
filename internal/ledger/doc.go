// Package ledger records every video generation attempt in a SQLite database
// inside the build directory. The pipeline state only knows the latest status
// per scene; the ledger keeps the full attempt history and the spend it
// incurred, which backs the history command.
//
// The database runs in WAL mode with a busy timeout, and writes retry briefly
// on SQLITE_BUSY because concurrent scene workers share the connection pool.
package ledger
