// Package state implements the chain-state view the registry operates
// on: a database-backed base view over the registry store and the UTXO
// set, and overlay caches that stage changes on top of it. Overlays
// nest; committing an overlay folds its changes into the parent, and
// committing onto the base view flushes them to the database in one
// transaction.
package state

import (
	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/util/chainlock"
)

// Backing is a view an overlay cache can stack on. Both the database
// view and the overlay cache implement it, so overlays nest to any
// depth. Only this package implements Backing; the flush hook is
// internal.
type Backing interface {
	registry.View

	// Iterate returns an iterator over the view's domains in domain
	// order. The view must not be mutated while the iterator is open.
	Iterate(guard *chainlock.Guard) (registry.Iterator, error)

	// applyBatch applies every change staged in the child cache to this
	// view: the database view writes them through one database
	// transaction, an overlay cache folds them into its own staging.
	applyBatch(guard *chainlock.Guard, child *Cache) error
}
