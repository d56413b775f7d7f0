// Package batch runs work over a list of items in fixed-size chunks.
//
// Chunks run one after another. Inside a chunk every item runs on its own
// goroutine, so at most chunk-size actions are in flight at any time and the
// next chunk only starts once every action of the current one has settled.
// Key pieces:
//   - Processor: splits items into chunks and hands each chunk to a callback
//   - Map: per-item fan-out inside each chunk, results kept in input order
//   - Progress: processed/total bookkeeping for logging
//   - Thresholds: fire-once percentage marks (25%, 50%, 75% by default)
//
// The group scanner drives Map with a chunk size of 10 so a single scan never
// has more than 10 outstanding requests against the blacklist service.
package batch
