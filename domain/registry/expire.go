package registry

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/registry/registryerrors"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/chainlock"
)

// ExpireAtHeight spends the owning coins of every domain that expires
// when the chain reaches the given height, appends the spent coins to
// undo, and returns the set of expired domains. Inconsistencies between
// the expiry index, the records and the UTXO set are state errors that
// must halt block processing.
func ExpireAtHeight(guard *chainlock.Guard, params *chaincfg.Params,
	height uint32, view View, undo *BlockUndo) (map[string]struct{}, error) {

	domains := make(map[string]struct{})

	// The genesis block expires nothing.
	if height == 0 {
		return domains, nil
	}

	// Find the update heights at which domains expire with this block.
	// When the expiration depth changes between blocks, this can be
	// several heights at once.
	expDepthOld := params.ExpirationDepth(height - 1)
	expDepthNow := params.ExpirationDepth(height)

	if expDepthNow > height {
		return domains, nil
	}

	// Both bounds are inclusive. The previous block expired domains up
	// to height-1-expDepthOld, so this one starts right after that.
	expireFrom := height - expDepthOld
	expireTo := height - expDepthNow

	// Raising the expiration depth together with the height can make
	// expireFrom exceed expireTo by one. No domain expires then; the
	// absolute expiration height stays flat for that block, which is
	// fine. A larger gap means the depth schedule jumped backwards.
	if expireFrom > expireTo+1 {
		panic(errors.Errorf("expiration range [%d, %d] at height %d is "+
			"not contiguous with the previous block's",
			expireFrom, expireTo, height))
	}

	for h := expireFrom; h <= expireTo; h++ {
		atHeight, err := view.DomainsAtHeight(guard, h)
		if err != nil {
			return nil, err
		}
		for domain := range atHeight {
			domains[domain] = struct{}{}
		}
	}

	// Expire the domains in their canonical order, so that the spent
	// coins recorded in the undo data line up across restarts.
	ordered := make([]string, 0, len(domains))
	for domain := range domains {
		ordered = append(ordered, domain)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return DomainLess([]byte(ordered[i]), []byte(ordered[j]))
	})

	for _, domainString := range ordered {
		domain := []byte(domainString)

		record, ok, err := view.GetDomain(guard, domain)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, registryerrors.NewStateError(
				"expiring domain '%s' not found in the registry", domain)
		}
		if !record.Expired(height, params) {
			return nil, registryerrors.NewStateError(
				"domain '%s' is not actually expired at height %d",
				domain, height)
		}

		// When d/postmortem expires, its coin is already spent: the
		// registration-stealing transactions of the 139000 era consumed
		// it long before the sweep got here. Skip it instead of
		// double-spending.
		if height == 175868 && domainString == "d/postmortem" {
			continue
		}

		outpoint := record.UpdateOutpoint()
		entry, ok, err := view.GetUTXO(guard, outpoint)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, registryerrors.NewStateError(
				"coin of expiring domain '%s' is not available", domain)
		}
		op := domainscript.ParseScript(entry.ScriptPubKey())
		if !op.IsDomainOp() || !op.IsAnyUpdate() ||
			!bytes.Equal(op.Domain(), domain) {

			return nil, registryerrors.NewStateError(
				"coin of expiring domain '%s' carries the wrong script",
				domain)
		}

		spent, ok, err := view.SpendUTXO(guard, outpoint)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, registryerrors.NewStateError(
				"failed to spend the coin of expiring domain '%s'", domain)
		}
		undo.Expired = append(undo.Expired, &utxoset.SpentUTXO{
			Outpoint: outpoint,
			Entry:    spent,
		})
	}

	return domains, nil
}

// UnexpireAtHeight restores the coins the expiry sweep of the given
// height spent, walking the undo data in strict reverse order, and
// returns the set of domains brought back to life. Each domain must be
// expired at the given height but not at the one before it; anything
// else means the undo data is applied out of order.
func UnexpireAtHeight(guard *chainlock.Guard, params *chaincfg.Params,
	height uint32, undo *BlockUndo, view View) (map[string]struct{}, error) {

	domains := make(map[string]struct{})

	// The genesis block expired nothing.
	if height == 0 {
		return domains, nil
	}

	for i := len(undo.Expired) - 1; i >= 0; i-- {
		spent := undo.Expired[i]

		op := domainscript.ParseScript(spent.Entry.ScriptPubKey())
		if !op.IsDomainOp() || !op.IsAnyUpdate() {
			return nil, registryerrors.NewStateError(
				"coin to be unexpired carries the wrong script")
		}
		domain := op.Domain()

		if _, ok := domains[string(domain)]; ok {
			return nil, registryerrors.NewStateError(
				"domain '%s' unexpired twice", domain)
		}
		domains[string(domain)] = struct{}{}

		record, ok, err := view.GetDomain(guard, domain)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, registryerrors.NewStateError(
				"no record for domain '%s' to be unexpired", domain)
		}
		if !record.Expired(height, params) || record.Expired(height-1, params) {
			return nil, registryerrors.NewStateError(
				"domain '%s' to be unexpired is not expired at height %d "+
					"or was already expired before it", domain, height)
		}
		if record.UpdateOutpoint() != spent.Outpoint {
			return nil, registryerrors.NewStateError(
				"coin %s to be unexpired does not own domain '%s'",
				spent.Outpoint, domain)
		}

		err = view.RestoreUTXO(guard, spent.Outpoint, spent.Entry)
		if err != nil {
			return nil, err
		}
	}

	return domains, nil
}
