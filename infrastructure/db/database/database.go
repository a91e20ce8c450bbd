package database

// Database defines the interface of a database that can begin transactions
// and close itself.
//
// Important: this is not part of the DataAccessor interface because the
// Transaction interface includes it. Were transactions able to begin child
// transactions, all sorts of unintended consequences would occur.
type Database interface {
	DataAccessor

	// Begin begins a new database transaction.
	Begin() (Transaction, error)

	// Compact compacts the database instance.
	Compact() error

	// Close closes the database.
	Close() error
}
