package merkle

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWitnessRequiresLeaf(t *testing.T) {
	_, err := NewWitness(NewFrontier())
	assert.ErrorIs(t, err, ErrEmptyTree)
}

func TestWitnessTracksAppends(t *testing.T) {
	const depth = 4
	const count = 16
	const witnessed = 5

	f := NewFrontier()
	var leaves []fr.Element
	for i := uint64(0); i <= witnessed; i++ {
		leaves = append(leaves, leaf(i))
		require.NoError(t, f.appendInner(leaf(i), depth))
	}

	w := newWitnessAtDepth(f, depth)
	assert.Equal(t, uint64(witnessed), w.Position())

	// the witness root must track the tree root through every append
	for i := uint64(witnessed + 1); i < count; i++ {
		leaves = append(leaves, leaf(i))
		require.NoError(t, f.appendInner(leaf(i), depth))
		require.NoError(t, w.Append(leaf(i)))

		wRoot := w.Root()
		fRoot := f.rootInner(depth, &pathFiller{})
		assert.True(t, wRoot.Equal(&fRoot), "after %d leaves", i+1)

		path, err := w.Path()
		require.NoError(t, err)
		assert.True(t, path.Verify(wRoot, leaf(witnessed)))
	}

	// tree is now full
	assert.ErrorIs(t, w.Append(leaf(99)), ErrTreeFull)
}

func TestWitnessEveryPosition(t *testing.T) {
	const depth = 5
	const count = 19

	for witnessed := uint64(0); witnessed < count; witnessed++ {
		f := NewFrontier()
		for i := uint64(0); i <= witnessed; i++ {
			require.NoError(t, f.appendInner(leaf(i), depth))
		}
		w := newWitnessAtDepth(f, depth)
		for i := witnessed + 1; i < count; i++ {
			require.NoError(t, w.Append(leaf(i)))
		}

		root := w.Root()
		path, err := w.Path()
		require.NoError(t, err)
		assert.Equal(t, witnessed, path.Position)
		assert.True(t, path.Verify(root, leaf(witnessed)), "position %d", witnessed)
	}
}

func TestWitnessRootMatchesNaive(t *testing.T) {
	const depth = 4

	f := NewFrontier()
	var leaves []fr.Element
	for i := uint64(0); i < 3; i++ {
		leaves = append(leaves, leaf(i))
		require.NoError(t, f.appendInner(leaf(i), depth))
	}

	w := newWitnessAtDepth(f, depth)
	for i := uint64(3); i < 11; i++ {
		leaves = append(leaves, leaf(i))
		require.NoError(t, w.Append(leaf(i)))
	}

	got := w.Root()
	want := naiveRoot(leaves, depth)
	assert.True(t, got.Equal(&want))
}

func TestWitnessAtProtocolDepth(t *testing.T) {
	f := NewFrontier()
	require.NoError(t, f.Append(leaf(0)))
	require.NoError(t, f.Append(leaf(1)))

	w, err := NewWitness(f)
	require.NoError(t, err)
	require.NoError(t, f.Append(leaf(2)))
	require.NoError(t, w.Append(leaf(2)))

	wRoot := w.Root()
	fRoot := f.Root()
	assert.True(t, wRoot.Equal(&fRoot))

	path, err := w.Path()
	require.NoError(t, err)
	assert.Len(t, path.Siblings, Depth)
	assert.True(t, path.Verify(fRoot, leaf(1)))
}

func TestPathRejectsWrongRoot(t *testing.T) {
	const depth = 4

	f := NewFrontier()
	for i := uint64(0); i < 6; i++ {
		require.NoError(t, f.appendInner(leaf(i), depth))
	}
	w := newWitnessAtDepth(f, depth)

	root := w.Root()
	path, err := w.Path()
	require.NoError(t, err)
	require.True(t, path.Verify(root, leaf(5)))

	var badRoot fr.Element
	badRoot.SetUint64(123456)
	assert.False(t, path.Verify(badRoot, leaf(5)))

	path.Siblings[2].SetUint64(777)
	assert.False(t, path.Verify(root, leaf(5)))
}
