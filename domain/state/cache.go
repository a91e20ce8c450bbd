package state

import (
	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/domain/registry/registryerrors"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// Cache is an overlay over a backing view. Reads fall through to the
// parent for anything the cache has no opinion on; mutations only stage,
// the parent is untouched until Commit. A cache is used by one owner at
// a time under the chain lock.
type Cache struct {
	parent   Backing
	registry *registry.Cache

	// utxoAdded holds coins created on this overlay, utxoSpent the
	// entries of coins it spent. A coin both spent and re-created is in
	// both; utxoAdded wins on reads and the flush deletes before it puts.
	utxoAdded utxoset.Collection
	utxoSpent map[wire.OutPoint]*utxoset.Entry

	trackHistory bool
}

// NewCache returns an empty overlay over parent. trackHistory must match
// the setting of every overlay it is ever committed into.
func NewCache(parent Backing, trackHistory bool) *Cache {
	return &Cache{
		parent:       parent,
		registry:     registry.NewCache(trackHistory),
		utxoAdded:    make(utxoset.Collection),
		utxoSpent:    make(map[wire.OutPoint]*utxoset.Entry),
		trackHistory: trackHistory,
	}
}

// GetDomain returns the domain's current record, preferring this
// overlay's staged version over the parent's.
func (c *Cache) GetDomain(guard *chainlock.Guard, domain []byte) (*registry.Record, bool, error) {
	if record, ok := c.registry.Get(domain); ok {
		return record, true, nil
	}
	if c.registry.IsDeleted(domain) {
		return nil, false, nil
	}
	return c.parent.GetDomain(guard, domain)
}

// SetDomain stages record as the domain's current record, keeping the
// expiry index in step and, when history is tracked, the history stack:
// a forward set pushes the replaced record, an undo set pops the record
// being restored.
func (c *Cache) SetDomain(guard *chainlock.Guard, domain []byte, record *registry.Record, undo bool) error {
	old, ok, err := c.GetDomain(guard, domain)
	if err != nil {
		return err
	}

	if c.trackHistory && (undo || ok) {
		history, hasHistory, err := c.GetDomainHistory(guard, domain)
		if err != nil {
			return err
		}
		if !hasHistory {
			history = registry.NewHistory()
		}
		if undo {
			history.Pop(record)
		} else {
			history.Push(old)
		}
		err = c.SetDomainHistory(guard, domain, history)
		if err != nil {
			return err
		}
	}

	if ok {
		c.registry.RemoveExpireIndex(domain, old.Height())
	}
	c.registry.AddExpireIndex(domain, record.Height())
	c.registry.Set(domain, record)
	return nil
}

// DeleteDomain stages the removal of the domain's record. The domain
// must exist and, when history is tracked, its history must be empty;
// anything else means the chain state has come apart.
func (c *Cache) DeleteDomain(guard *chainlock.Guard, domain []byte) error {
	old, ok, err := c.GetDomain(guard, domain)
	if err != nil {
		return err
	}
	if !ok {
		return registryerrors.NewStateError(
			"deleting domain '%s' which is not registered", domain)
	}

	if c.trackHistory {
		history, hasHistory, err := c.GetDomainHistory(guard, domain)
		if err != nil {
			return err
		}
		if hasHistory && !history.Empty() {
			return registryerrors.NewStateError(
				"deleting domain '%s' which still has history", domain)
		}
		c.registry.SetHistory(domain, registry.NewHistory())
	}

	c.registry.Remove(domain)
	c.registry.RemoveExpireIndex(domain, old.Height())
	return nil
}

// GetDomainHistory returns the domain's history stack. A stack read from
// the parent is cloned, so mutating it does not disturb the parent
// before a commit.
func (c *Cache) GetDomainHistory(guard *chainlock.Guard, domain []byte) (*registry.History, bool, error) {
	if history, ok := c.registry.GetHistory(domain); ok {
		return history, true, nil
	}
	history, ok, err := c.parent.GetDomainHistory(guard, domain)
	if err != nil || !ok {
		return nil, ok, err
	}
	return history.Clone(), true, nil
}

// SetDomainHistory stages history as the domain's stack. The overlay
// takes ownership of it.
func (c *Cache) SetDomainHistory(guard *chainlock.Guard, domain []byte, history *registry.History) error {
	c.registry.SetHistory(domain, history)
	return nil
}

// DomainsAtHeight returns the set of domains last updated at the given
// height, the parent's set adjusted by this overlay's staged expiry
// index changes.
func (c *Cache) DomainsAtHeight(guard *chainlock.Guard, height uint32) (map[string]struct{}, error) {
	domains, err := c.parent.DomainsAtHeight(guard, height)
	if err != nil {
		return nil, err
	}
	c.registry.UpdateDomainsForHeight(height, domains)
	return domains, nil
}

// GetUTXO returns the unspent entry for the outpoint.
func (c *Cache) GetUTXO(guard *chainlock.Guard, outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
	if entry, ok := c.utxoAdded[outpoint]; ok {
		return entry, true, nil
	}
	if _, ok := c.utxoSpent[outpoint]; ok {
		return nil, false, nil
	}
	return c.parent.GetUTXO(guard, outpoint)
}

// AddUTXO stages a new unspent entry for the outpoint.
func (c *Cache) AddUTXO(guard *chainlock.Guard, outpoint wire.OutPoint, entry *utxoset.Entry) error {
	_, ok, err := c.GetUTXO(guard, outpoint)
	if err != nil {
		return err
	}
	if ok {
		return registryerrors.NewStateError(
			"adding outpoint %s which is already unspent", outpoint)
	}
	c.utxoAdded[outpoint] = entry
	return nil
}

// SpendUTXO stages the spend of the outpoint and returns the entry it
// held.
func (c *Cache) SpendUTXO(guard *chainlock.Guard, outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
	entry, ok, err := c.GetUTXO(guard, outpoint)
	if err != nil || !ok {
		return nil, ok, err
	}
	delete(c.utxoAdded, outpoint)
	c.utxoSpent[outpoint] = entry
	return entry, true, nil
}

// RestoreUTXO stages the return of a coin the expiry sweep spent. The
// outpoint must not currently be unspent.
func (c *Cache) RestoreUTXO(guard *chainlock.Guard, outpoint wire.OutPoint, entry *utxoset.Entry) error {
	_, ok, err := c.GetUTXO(guard, outpoint)
	if err != nil {
		return err
	}
	if ok {
		return registryerrors.NewStateError(
			"restoring outpoint %s which is still unspent", outpoint)
	}
	if _, spentHere := c.utxoSpent[outpoint]; spentHere {
		// Unstage the spend; the parent's copy becomes visible again.
		delete(c.utxoSpent, outpoint)
		return nil
	}
	c.utxoAdded[outpoint] = entry
	return nil
}

// Iterate returns an iterator over the overlay's view of the registry:
// the parent's domains with this overlay's staged changes merged in.
// The overlay must not be mutated while the iterator is open.
func (c *Cache) Iterate(guard *chainlock.Guard) (registry.Iterator, error) {
	base, err := c.parent.Iterate(guard)
	if err != nil {
		return nil, err
	}
	return c.registry.IterateDomains(base), nil
}

// Empty reports whether the overlay stages no changes.
func (c *Cache) Empty() bool {
	return c.registry.Empty() && len(c.utxoAdded) == 0 && len(c.utxoSpent) == 0
}

// Commit applies every staged change to the parent view and leaves the
// overlay empty and reusable. Committing into another overlay folds the
// changes into its staging; committing into the database view writes
// them through one database transaction.
func (c *Cache) Commit(guard *chainlock.Guard) error {
	if c.Empty() {
		return nil
	}
	err := c.parent.applyBatch(guard, c)
	if err != nil {
		return err
	}
	c.registry.Clear()
	c.utxoAdded = make(utxoset.Collection)
	c.utxoSpent = make(map[wire.OutPoint]*utxoset.Entry)
	return nil
}

func (c *Cache) applyBatch(guard *chainlock.Guard, child *Cache) error {
	c.registry.Apply(child.registry)

	for outpoint, entry := range child.utxoSpent {
		if _, ok := c.utxoAdded[outpoint]; ok {
			// The child spent a coin this overlay created; they cancel.
			delete(c.utxoAdded, outpoint)
			continue
		}
		c.utxoSpent[outpoint] = entry
	}
	for outpoint, entry := range child.utxoAdded {
		c.utxoAdded[outpoint] = entry
	}
	return nil
}
