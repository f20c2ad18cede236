package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemii235/librustzcash/merkle"
	"github.com/artemii235/librustzcash/pkg/common"
	"github.com/artemii235/librustzcash/pkg/types"
	"github.com/artemii235/librustzcash/sapling"
)

// testKeys derives an account's scanning key chain from a spending key
// filled with tag.
func testKeys(t *testing.T, account AccountID, tag byte) (*sapling.ExpandedSpendingKey, *ScanningKey, *sapling.PaymentAddress) {
	t.Helper()

	var sk sapling.SpendingKey
	for i := range sk {
		sk[i] = tag
	}
	expsk, err := sk.Expand()
	require.NoError(t, err)
	fvk, err := expsk.FullViewingKey()
	require.NoError(t, err)
	key, err := NewScanningKey(account, fvk)
	require.NoError(t, err)
	_, addr, err := sk.DefaultAddress()
	require.NoError(t, err)

	return expsk, key, addr
}

func randomHash(t *testing.T) types.Hash {
	t.Helper()
	b, err := common.RandomBytes(types.HashSize)
	require.NoError(t, err)
	return types.HashFromBytes(b)
}

// compactOutputTo encrypts a real note to addr and compacts it
func compactOutputTo(t *testing.T, addr *sapling.PaymentAddress, value uint64) (*types.CompactOutput, *sapling.Note) {
	t.Helper()

	rseed, err := sapling.NewRseed()
	require.NoError(t, err)
	note := &sapling.Note{Value: value, Recipient: *addr, Rseed: rseed}

	ne, err := sapling.NewNoteEncryption(note, types.DefaultMemo(), nil)
	require.NoError(t, err)
	od, _, err := ne.EncryptOutput()
	require.NoError(t, err)

	return od.ToCompact(), note
}

// decoyOutput encrypts a note to a throwaway account
func decoyOutput(t *testing.T, value uint64) *types.CompactOutput {
	t.Helper()

	sk, err := sapling.NewSpendingKey()
	require.NoError(t, err)
	_, addr, err := sk.DefaultAddress()
	require.NoError(t, err)
	co, _ := compactOutputTo(t, addr, value)
	return co
}

func fakeTx(t *testing.T, outputs []*types.CompactOutput, spends ...types.Nullifier) *types.CompactTx {
	t.Helper()

	tx := &types.CompactTx{Hash: randomHash(t), Outputs: outputs}
	for _, nf := range spends {
		tx.Spends = append(tx.Spends, &types.CompactSpend{NF: nf})
	}
	return tx
}

func fakeBlock(t *testing.T, height uint64, prevHash types.Hash, txs ...*types.CompactTx) *types.CompactBlock {
	t.Helper()

	for i, tx := range txs {
		tx.Index = uint64(i)
	}
	return &types.CompactBlock{
		Height:   height,
		Hash:     randomHash(t),
		PrevHash: prevHash,
		Time:     uint32(1600000000 + height),
		Vtx:      txs,
	}
}

func TestScanBlockFindsOutput(t *testing.T) {
	_, key, addr := testKeys(t, 1, 0x42)

	ours, note := compactOutputTo(t, addr, 25_000)
	block := fakeBlock(t, 100, types.Hash{},
		fakeTx(t, []*types.CompactOutput{decoyOutput(t, 5)}),
		fakeTx(t, []*types.CompactOutput{ours, decoyOutput(t, 8)}),
	)

	tree := merkle.NewFrontier()
	txs, err := ScanBlock(block, []*ScanningKey{key}, nil, tree, nil)
	require.NoError(t, err)

	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, uint64(1), tx.Index)
	assert.Empty(t, tx.Spends)
	require.Len(t, tx.Outputs, 1)

	out := tx.Outputs[0]
	assert.Equal(t, AccountID(1), out.Account)
	assert.Equal(t, 0, out.Index)
	assert.Equal(t, uint64(25_000), out.Note.Value)
	assert.Equal(t, note.Recipient.Bytes(), out.Note.Recipient.Bytes())
	assert.Equal(t, uint64(1), out.Position)
	assert.False(t, out.IsChange)

	// every output in the block went into the tree
	assert.Equal(t, uint64(3), tree.Size())

	// the fresh witness is caught up to the end of the block
	root := tree.Root()
	wRoot := out.Witness.Root()
	assert.True(t, wRoot.Equal(&root))

	path, err := out.Witness.Path()
	require.NoError(t, err)
	assert.True(t, path.Verify(root, out.CMU))

	nfWant, err := note.Nullifier(&key.FVK.Nk, out.Position)
	require.NoError(t, err)
	assert.Equal(t, nfWant, out.NF)
}

func TestScanBlockDetectsSpend(t *testing.T) {
	_, key, _ := testKeys(t, 7, 0x42)

	var nf types.Nullifier
	nf[3] = 0xcd

	block := fakeBlock(t, 5, types.Hash{}, fakeTx(t, nil, nf))
	tree := merkle.NewFrontier()
	txs, err := ScanBlock(block, []*ScanningKey{key}, []AccountNullifier{{Account: 7, NF: nf}}, tree, nil)
	require.NoError(t, err)

	require.Len(t, txs, 1)
	require.Len(t, txs[0].Spends, 1)
	assert.Equal(t, AccountID(7), txs[0].Spends[0].Account)
	assert.Equal(t, nf, txs[0].Spends[0].NF)
	assert.Empty(t, txs[0].Outputs)
}

func TestScanBlockIgnoresForeignBlock(t *testing.T) {
	_, key, _ := testKeys(t, 1, 0x42)

	var nf types.Nullifier
	nf[0] = 0x01

	block := fakeBlock(t, 5, types.Hash{},
		fakeTx(t, []*types.CompactOutput{decoyOutput(t, 3)}, nf),
	)
	tree := merkle.NewFrontier()
	txs, err := ScanBlock(block, []*ScanningKey{key}, nil, tree, nil)
	require.NoError(t, err)

	assert.Empty(t, txs)
	assert.Equal(t, uint64(1), tree.Size())
}

func TestScanBlockMarksChange(t *testing.T) {
	_, key, addr := testKeys(t, 1, 0x42)

	ours, _ := compactOutputTo(t, addr, 4_000)
	var nf types.Nullifier
	nf[9] = 0x77

	// one transaction both spends our note and pays us back
	block := fakeBlock(t, 10, types.Hash{}, fakeTx(t, []*types.CompactOutput{ours}, nf))
	tree := merkle.NewFrontier()
	txs, err := ScanBlock(block, []*ScanningKey{key}, []AccountNullifier{{Account: 1, NF: nf}}, tree, nil)
	require.NoError(t, err)

	require.Len(t, txs, 1)
	require.Len(t, txs[0].Outputs, 1)
	assert.True(t, txs[0].Outputs[0].IsChange)
}

func TestScanBlockAdvancesExistingWitnesses(t *testing.T) {
	_, key, addr := testKeys(t, 1, 0x42)

	ours, _ := compactOutputTo(t, addr, 1_000)
	tree := merkle.NewFrontier()

	b1 := fakeBlock(t, 1, types.Hash{}, fakeTx(t, []*types.CompactOutput{ours}))
	txs, err := ScanBlock(b1, []*ScanningKey{key}, nil, tree, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	w := txs[0].Outputs[0].Witness
	cmu := txs[0].Outputs[0].CMU

	b2 := fakeBlock(t, 2, b1.Hash,
		fakeTx(t, []*types.CompactOutput{decoyOutput(t, 1), decoyOutput(t, 2)}),
	)
	_, err = ScanBlock(b2, []*ScanningKey{key}, nil, tree, []*merkle.Witness{w})
	require.NoError(t, err)

	root := tree.Root()
	wRoot := w.Root()
	assert.True(t, wRoot.Equal(&root))

	path, err := w.Path()
	require.NoError(t, err)
	assert.True(t, path.Verify(root, cmu))
}

func TestScanBlockRejectsBadCommitment(t *testing.T) {
	_, key, _ := testKeys(t, 1, 0x42)

	co := &types.CompactOutput{}
	for i := range co.CMU {
		co.CMU[i] = 0xff
	}
	block := fakeBlock(t, 1, types.Hash{}, fakeTx(t, []*types.CompactOutput{co}))

	_, err := ScanBlock(block, []*ScanningKey{key}, nil, merkle.NewFrontier(), nil)
	assert.ErrorIs(t, err, sapling.ErrMalformedInput)
}

func TestScanBlockMultipleAccounts(t *testing.T) {
	_, keyA, addrA := testKeys(t, 1, 0x42)
	_, keyB, addrB := testKeys(t, 2, 0x43)

	outA, _ := compactOutputTo(t, addrA, 100)
	outB, _ := compactOutputTo(t, addrB, 200)

	block := fakeBlock(t, 1, types.Hash{},
		fakeTx(t, []*types.CompactOutput{outA, outB}),
	)
	tree := merkle.NewFrontier()
	txs, err := ScanBlock(block, []*ScanningKey{keyA, keyB}, nil, tree, nil)
	require.NoError(t, err)

	require.Len(t, txs, 1)
	require.Len(t, txs[0].Outputs, 2)
	assert.Equal(t, AccountID(1), txs[0].Outputs[0].Account)
	assert.Equal(t, uint64(100), txs[0].Outputs[0].Note.Value)
	assert.Equal(t, AccountID(2), txs[0].Outputs[1].Account)
	assert.Equal(t, uint64(200), txs[0].Outputs[1].Note.Value)
}
