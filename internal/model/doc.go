// Package model defines shared data types used across ledgerwatch.
//
// Conventions:
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Event IDs: transaction reference + "-" + sequence number
//   - Filters: canonical serialization (sorted query encoding) used as map keys
package model
