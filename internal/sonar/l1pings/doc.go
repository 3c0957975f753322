// Package l1pings owns Layer 1 (Pings) of the sonar data model.
//
// Responsibilities: reading the decoder's ping table, resolving beam names
// once, grouping pings into fixed-size chunks, and composing the
// zero-padded chunk intensity image.
// Key types: Record, Ping, Fix, Chunk, Image.
//
// Dependency rule: L1 depends only on the sonar value types.
// No SQL/database code is allowed in this package.
package l1pings
