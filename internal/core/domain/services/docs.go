// Package services holds domain rules that compare or combine aggregates
// rather than belonging to one of them.
//
// The package includes:
//   - OrderReconciler: decides whether an incoming order record supersedes the cached one
package services
