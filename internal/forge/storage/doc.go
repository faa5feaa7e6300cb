// Package storage defines the persistence contracts for profile-scoped
// optimizer state.
//
// Every entity except Profile is partitioned by profile id. Implementations
// must make each multi-row write atomic: readers observe either the state
// before the call or the complete state after it.
//
// # Error Types
//
//   - ErrNotFound: a referenced profile or cached result does not exist.
//   - ErrNoActiveProfile: an operation needing a profile context found none.
//   - ErrCapacityExceeded: profile creation would exceed the configured maximum.
//   - ErrNoData: the profile exists but holds no machine rows yet.
//   - ErrInvariantViolation: persisted profiles break the single-active rule.
//   - ErrInvalidArgument: input such as a blank profile name or unknown mode.
package storage
