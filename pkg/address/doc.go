// Package address hands out short device addresses during pairing.
//
// The engine does not remember which addresses a network already uses. A
// Ledger answers that question, and an Allocator takes a snapshot of the
// free addresses for one pairing run. Addresses taken from an Allocator are
// never returned to it, even when the run fails.
package address
