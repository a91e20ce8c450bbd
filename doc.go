/*
Package domirad implements the domain registry of the Domira network.

Domains are short names registered on the chain and bound to small opaque
values. The registry lives beside the UTXO set: every registered domain is
anchored to an unspent coin carrying its latest update script, and spending
that coin is what transfers or updates the domain. Registrations run in two
transactions, a sealed commitment followed by a reveal, and lapse again a
network-defined number of blocks after their last update.

The heart of the module is the domain/registry package, which holds the
record model, the consensus checks for registry transactions, the cache the
node stages block connects and disconnects in, and the expiry sweeps. The
surrounding packages supply what the registry needs from a node: the wire
transaction model (wire), the script encoding of the registry operations
(domain/domainscript), the per-network parameters (domain/chaincfg), durable
storage (domain/registry/registrystore over infrastructure/db), the chain
state views gluing it all together (domain/state), the mempool bookkeeping
of in-flight registry transactions (domain/mempool), and the wallet's store
of not-yet-revealed registrations (domain/wallet/pendingop).

The cmd/domscan tool reads a node's registry database directly and prints
listings, per-domain detail and consistency audits.
*/
package domirad
