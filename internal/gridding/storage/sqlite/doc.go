// Package sqlite stores convolution-function cache checkpoints in SQLite.
//
// The schema is managed by golang-migrate from migrations embedded in the
// binary; OpenDB applies them on open. Checkpoint payloads are opaque blobs
// produced by convfunc.EncodeCheckpoint, stored alongside enough metadata to
// list and prune them without decoding.
package sqlite
