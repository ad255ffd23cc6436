// Package store provides SQLite-backed session and project state for rule
// conditions.
//
// Values are JSON documents keyed by (scope, owner, key):
//   - session scope: owner is the host session id
//   - project scope: owner is the absolute project directory
//
// # Database Configuration
//
//   - WAL mode: hooks of concurrent sessions read while another writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: wait instead of failing on lock contention
//   - PRAGMA user_version: schema migrations
//
// Schema setup is serialized across processes with a lock file next to the
// database, since several hook processes may open a fresh database at once.
package store
