package rowstore

import "github.com/golang/glog"

// obsoleteCheck walks a version chain starting at upd looking for the
// first version every live reader snapshot can see. Everything
// strictly after it is invisible garbage and gets truncated with a
// single CAS; the truncated tail is returned for the caller to free
// outside the serialization ticket. Returns nil if nothing could be
// (or needed to be) truncated — including when another pruner won the
// CAS race first.
func obsoleteCheck(txn TxnManager, upd *Update) *Update {
	for u := upd; u != nil; u = u.Next.Load() {
		if !txn.VisibleAll(u.TxnID) {
			continue
		}
		tail := u.Next.Load()
		if tail == nil {
			return nil
		}
		if !u.Next.CompareAndSwap(tail, nil) {
			return nil
		}
		return tail
	}
	return nil
}

// freeObsolete accounts for and discards a truncated version chain.
// Tombstones contribute only their fixed record size, matching the
// rule applied at allocation time.
func (c *Core) freeObsolete(leaf *Leaf, chain *Update) {
	var freed int64
	count := 0
	for u := chain; u != nil; u = u.Next.Load() {
		freed += u.size()
		count++
	}
	if freed == 0 {
		return
	}
	c.Cache.DecrInMem(leaf, freed)
	c.Metrics.obsoleteBytesFreed.Add(float64(freed))
	if glog.V(3) {
		glog.Infof("rowstore: pruned %d obsolete version(s), %d bytes", count, freed)
	}
}

// PruneLeaf sweeps every version chain on a leaf for obsolescence: the
// updates[] entry of every on-page slot, and the upd chain of every
// insert node in every gap. Safe to run concurrently with writers —
// each attempt uses CAS on a single Next pointer, the same primitive
// the opportunistic prune inside updatePublish uses.
func (c *Core) PruneLeaf(leaf *Leaf, txn TxnManager) {
	if updates := leaf.updates.Load(); updates != nil {
		for i := range *updates {
			entry := &(*updates)[i]
			if obsolete := obsoleteCheck(txn, entry.Load()); obsolete != nil {
				c.freeObsolete(leaf, obsolete)
			}
		}
	}

	gaps := leaf.gaps.Load()
	if gaps == nil {
		return
	}
	for i := range *gaps {
		head := (*gaps)[i].Load()
		if head == nil {
			continue
		}
		for n := head.Head[0].Load(); n != nil; n = n.Next[0].Load() {
			if obsolete := obsoleteCheck(txn, n.Upd.Load()); obsolete != nil {
				c.freeObsolete(leaf, obsolete)
			}
		}
	}
}
