// Package storage writes downloaded media artifacts.
//
// Two backends implement ArtifactStore: LocalStore keeps files in the
// archive's media directory and S3Store uploads them to a bucket (AWS or
// any S3 compatible endpoint such as MinIO). Artifact names are chosen by
// the caller and are stable across runs, so Exists lets the caller skip a
// fetch for a file an earlier run already stored.
package storage
