// Package publish uploads finished movies to S3-compatible object storage.
//
// Publishing is optional and runs after composition succeeds. The movie is
// stored under bucket/prefix/<run_id>/<file> and a presigned GET URL is
// returned so the user can share or download it. Callers treat failures as
// warnings: a failed upload never changes the pipeline state.
package publish
