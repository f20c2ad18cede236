package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/types"
)

type memoryNote struct {
	id          NoteID
	account     AccountID
	txHash      types.Hash
	index       int
	value       uint64
	nf          types.Nullifier
	minedHeight uint64
	spent       bool
	spentHeight uint64
}

type memoryBlock struct {
	hash types.Hash
	time uint32
	tree *merkle.Frontier
}

// MemoryWallet is an in-memory WalletStore for tests and
// experimentation. It mirrors the semantics of the PostgreSQL store
// without persistence.
type MemoryWallet struct {
	mu        sync.Mutex
	keys      []*ScanningKey
	blocks    map[uint64]*memoryBlock
	notes     []*memoryNote
	witnesses map[uint64][]NoteWitness
	nextNote  NoteID
}

// NewMemoryWallet creates an empty wallet tracking the given keys
func NewMemoryWallet(keys ...*ScanningKey) *MemoryWallet {
	return &MemoryWallet{
		keys:      keys,
		blocks:    make(map[uint64]*memoryBlock),
		witnesses: make(map[uint64][]NoteWitness),
		nextNote:  1,
	}
}

// GetScanningKeys returns the tracked viewing keys
func (m *MemoryWallet) GetScanningKeys(ctx context.Context) ([]*ScanningKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ScanningKey, len(m.keys))
	copy(out, m.keys)
	return out, nil
}

// BlockHeightExtrema returns the scanned height range
func (m *MemoryWallet) BlockHeightExtrema(ctx context.Context) (uint64, uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.blocks) == 0 {
		return 0, 0, false, nil
	}
	first := true
	var min, max uint64
	for h := range m.blocks {
		if first || h < min {
			min = h
		}
		if first || h > max {
			max = h
		}
		first = false
	}
	return min, max, true, nil
}

// GetBlockHash returns the hash of the scanned block at height
func (m *MemoryWallet) GetBlockHash(ctx context.Context, height uint64) (types.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[height]
	if !ok {
		return types.Hash{}, fmt.Errorf("scanner: no scanned block at height %d", height)
	}
	return b.hash, nil
}

// GetCommitmentTree returns the frontier as of the block at height
func (m *MemoryWallet) GetCommitmentTree(ctx context.Context, height uint64) (*merkle.Frontier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[height]
	if !ok {
		return nil, fmt.Errorf("scanner: no scanned block at height %d", height)
	}
	return b.tree.Clone(), nil
}

// GetWitnesses returns copies of the witnesses stored at height
func (m *MemoryWallet) GetWitnesses(ctx context.Context, height uint64) ([]NoteWitness, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.witnesses[height]
	out := make([]NoteWitness, 0, len(stored))
	for _, nw := range stored {
		out = append(out, NoteWitness{Note: nw.Note, Witness: nw.Witness.Clone()})
	}
	return out, nil
}

// GetNullifiers returns the nullifiers of all unspent notes
func (m *MemoryWallet) GetNullifiers(ctx context.Context) ([]AccountNullifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AccountNullifier
	for _, n := range m.notes {
		if !n.spent {
			out = append(out, AccountNullifier{Account: n.account, NF: n.nf})
		}
	}
	return out, nil
}

// AdvanceByBlock records one scanned block
func (m *MemoryWallet) AdvanceByBlock(ctx context.Context, block *PrunedBlock, updatedWitnesses []NoteWitness) ([]NoteWitness, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[block.Height] = &memoryBlock{
		hash: block.Hash,
		time: block.Time,
		tree: block.CommitmentTree.Clone(),
	}

	var fresh []NoteWitness
	for _, tx := range block.Transactions {
		for _, spend := range tx.Spends {
			for _, n := range m.notes {
				if n.nf == spend.NF && !n.spent {
					n.spent = true
					n.spentHeight = block.Height
				}
			}
		}
		for _, out := range tx.Outputs {
			note := &memoryNote{
				id:          m.nextNote,
				account:     out.Account,
				txHash:      tx.Hash,
				index:       out.Index,
				value:       out.Note.Value,
				nf:          out.NF,
				minedHeight: block.Height,
			}
			m.nextNote++
			m.notes = append(m.notes, note)
			fresh = append(fresh, NoteWitness{Note: note.id, Witness: out.Witness})
		}
	}

	snapshot := make([]NoteWitness, 0, len(updatedWitnesses)+len(fresh))
	for _, nw := range updatedWitnesses {
		snapshot = append(snapshot, NoteWitness{Note: nw.Note, Witness: nw.Witness.Clone()})
	}
	for _, nw := range fresh {
		snapshot = append(snapshot, NoteWitness{Note: nw.Note, Witness: nw.Witness.Clone()})
	}
	m.witnesses[block.Height] = snapshot

	return fresh, nil
}

// RewindToHeight drops all state above height. Notes spent above the
// rewind point become unspent again.
func (m *MemoryWallet) RewindToHeight(ctx context.Context, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for h := range m.blocks {
		if h > height {
			delete(m.blocks, h)
		}
	}
	for h := range m.witnesses {
		if h > height {
			delete(m.witnesses, h)
		}
	}

	kept := m.notes[:0]
	for _, n := range m.notes {
		if n.minedHeight > height {
			continue
		}
		if n.spent && n.spentHeight > height {
			n.spent = false
			n.spentHeight = 0
		}
		kept = append(kept, n)
	}
	m.notes = kept
	return nil
}

// Balance sums the unspent note values of one account
func (m *MemoryWallet) Balance(account AccountID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total uint64
	for _, n := range m.notes {
		if n.account == account && !n.spent {
			total += n.value
		}
	}
	return total
}

// MemoryBlockSource serves compact blocks from memory, in height order
type MemoryBlockSource struct {
	mu     sync.Mutex
	blocks []*types.CompactBlock
}

// NewMemoryBlockSource creates a source preloaded with blocks
func NewMemoryBlockSource(blocks ...*types.CompactBlock) *MemoryBlockSource {
	s := &MemoryBlockSource{}
	s.Add(blocks...)
	return s
}

// Add inserts blocks, keeping height order
func (s *MemoryBlockSource) Add(blocks ...*types.CompactBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = append(s.blocks, blocks...)
	sort.Slice(s.blocks, func(i, j int) bool { return s.blocks[i].Height < s.blocks[j].Height })
}

// GetCompactBlocks returns up to limit blocks starting at fromHeight
func (s *MemoryBlockSource) GetCompactBlocks(ctx context.Context, fromHeight uint64, limit int) ([]*types.CompactBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.CompactBlock
	for _, b := range s.blocks {
		if b.Height < fromHeight {
			continue
		}
		out = append(out, b)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
