// Package sqlite contains SQLite repository implementations for sonar
// processing runs.
//
// All database reads and writes for runs, reconciled ping depths and chunk
// events belong here rather than in the layer packages (L1-L6). The schema
// is owned by internal/db migrations.
package sqlite
