// Package ledger provides address.Ledger implementations.
//
// Memory keeps the used addresses for the life of the process, File keeps
// them in a JSON document and SQLite in a database table. All of them key
// networks by name, so two networks with the same name and different
// passwords share one address space.
package ledger
