// Package artifacts stores synthesized narration and composed videos and
// resolves artifact references back to local files.
//
// A reference is whatever the backend hands out from Put: an absolute path
// for the local directory store, a presigned URL (or s3://bucket/key) for the
// MinIO store. Localize accepts any of those plus plain http(s) URLs so
// caller-supplied background videos work the same way as generated audio.
package artifacts
