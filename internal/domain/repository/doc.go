// Package repository defines the domain records and the storage contracts
// the authentication core depends on.
//
// Implementations live in internal/store/adapters/ (pg, memory).
//
// Conventions:
//   - context.Context is always the first parameter
//   - emails are stored lower-cased; callers normalize with NormalizeEmail
//   - lookups that find nothing return ErrNotFound
//   - unique-key violations return ErrConflict
package repository
