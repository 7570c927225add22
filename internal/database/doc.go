// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package database stores Milkat's records in DuckDB.

One *DB backs every store interface the redevelopment service and the
notification dispatcher depend on:

  - members.go: society membership directory (active members, owner lookup)
  - projects.go: redevelopment projects, phases, updates, queries, documents
  - proposals.go: developer proposals and shortlisting
  - votes.go: the vote ledger; one vote per member, session and proposal
  - notifications.go: persisted notifications, read state, expiry purge

Tables are created by schema.go on New. Lookups that find nothing return
ErrNotFound; unique key violations on votes and proposals wrap
ErrDuplicateKey. Project writes carry a version and fail with
ErrVersionConflict when another writer got there first.

Nested values (phases, updates, queries, documents) are stored as JSON text
in VARCHAR columns and decoded with goccy/go-json.
*/
package database
