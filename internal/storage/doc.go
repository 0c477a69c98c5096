// Package storage is the persistence boundary for user schedules.
//
// It owns two SQLite relations:
//   - schedules: one row per busy activity, times kept as zero-padded
//     text (lexicographic HH:MM compare == chronological compare)
//   - chats_users: which users belong to which chat roster
//
// Writes that must not race their own precondition (conflict-checked
// inserts) run inside a single transaction.
package storage
