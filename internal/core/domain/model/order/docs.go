// Package order provides the Order aggregate of the food-ordering marketplace
// and the lifecycle state machine that governs it.
//
// The package includes:
//   - Order: the aggregate root (identity, ownership, items, status, versioning)
//   - Item: an immutable line of the order
//   - Draft: a validated request to place a new order
//   - Status: the lifecycle states and the transition graph between them
//   - Transition: the pure validator of status changes by role
//
// Lifecycle:
//
//	confirmed ──> preparing ──> ready ──> picked_up ──> delivered
//	    │             │
//	    └─────────────┴──> cancelled
//
// Key business rules:
//   - Orders carry at least one item and every quantity is at least 1
//   - TotalPrice equals the sum of price times quantity plus the external fees
//   - Status only moves forward along the graph; delivered and cancelled are terminal
//   - Only cooks issue preparing and ready, only delivery actors issue picked_up
//     and delivered, only customers and admins issue cancelled
//   - Orders are never deleted
package order
