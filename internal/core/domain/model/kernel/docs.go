// Package kernel provides the shared domain primitives of the order
// synchronization core.
//
// The package includes:
//   - UUID: identifiers minted locally (provisional order ids, tracking numbers)
//   - Money: non-negative decimal amounts backed by shopspring/decimal
//   - Role, Actor and Scope: who a session acts for and which orders it may see
//
// Values are immutable and safe for concurrent use.
package kernel
