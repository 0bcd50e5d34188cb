package scdb

import (
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mit-dci/sidechaindb/sidechain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMatchSingle has one WT^ in the SCDB and one update for it.
func TestMatchSingle(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)

	wt := WTPrimeState{
		Sidechain:  scTest,
		WTPrime:    randHash(),
		WorkScore:  1,
		BlocksLeft: 100,
	}
	require.NoError(t, db.UpdateSCDBIndex(0, []WTPrimeState{wt}))

	// what the SCDB should look like after the next block
	cp := db.Copy()
	wt.WorkScore++
	wt.BlocksLeft--
	require.NoError(t, cp.UpdateSCDBIndex(2, []WTPrimeState{wt}))

	pkg := UpdatePackage{
		Height: 2,
		Updates: []UpdateMsg{
			{Sidechain: scTest, WTPrime: wt.WTPrime, WorkScore: 2},
		},
	}
	require.NoError(t, db.AddUpdatePackage(pkg))
	require.Equal(t, 1, db.PendingPackages())

	ok, err := db.TryMatch(2, cp.GetSCDBHash())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, db.Equal(cp))
	require.Equal(t, cp.GetState(scTest), db.GetState(scTest))
	require.Equal(t, 0, db.PendingPackages())
}

// TestMatchMultipleSidechains updates one of three WT^s and checks that
// the other two still age.
func TestMatchMultipleSidechains(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)

	var wts []WTPrimeState
	for _, sc := range []uint8{scTest, scHivemind, scWimble} {
		wts = append(wts, WTPrimeState{
			Sidechain:  sc,
			WTPrime:    randHash(),
			WorkScore:  1,
			BlocksLeft: 100,
		})
	}
	require.NoError(t, db.UpdateSCDBIndex(0, wts))

	cp := db.Copy()
	wts[1].WorkScore++
	for i := range wts {
		wts[i].BlocksLeft--
	}
	require.NoError(t, cp.UpdateSCDBIndex(1, wts))

	require.NoError(t, db.AddUpdatePackage(UpdatePackage{
		Height: 1,
		Updates: []UpdateMsg{
			{Sidechain: scHivemind, WTPrime: wts[1].WTPrime, WorkScore: 2},
		},
	}))

	ok, err := db.TryMatch(1, cp.GetSCDBHash())
	require.NoError(t, err)
	require.True(t, ok)
	for _, sc := range []uint8{scTest, scHivemind, scWimble} {
		require.Equal(t, uint32(99), db.GetState(sc)[0].BlocksLeft)
	}
}

// TestMatchMultipleWTPrimes updates WT^s on several sidechains in one
// block, plus a brand new WT^.
func TestMatchMultipleWTPrimes(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)

	a := WTPrimeState{Sidechain: scTest, WTPrime: randHash(), WorkScore: 1, BlocksLeft: 100}
	b := WTPrimeState{Sidechain: scWimble, WTPrime: randHash(), WorkScore: 3, BlocksLeft: 100}
	require.NoError(t, db.UpdateSCDBIndex(0, []WTPrimeState{a, b}))

	fresh := WTPrimeState{Sidechain: scHivemind, WTPrime: randHash(), WorkScore: 1, BlocksLeft: 100}
	a.WorkScore, a.BlocksLeft = 2, 99
	b.WorkScore, b.BlocksLeft = 4, 99
	want := ComputeDigest([]WTPrimeState{fresh, b, a})

	require.NoError(t, db.AddUpdatePackage(UpdatePackage{
		Height: 1,
		Updates: []UpdateMsg{
			{Sidechain: scTest, WTPrime: a.WTPrime, WorkScore: 2},
			{Sidechain: scWimble, WTPrime: b.WTPrime, WorkScore: 4},
			{Sidechain: scHivemind, WTPrime: fresh.WTPrime, WorkScore: 1},
		},
	}))

	ok, err := db.TryMatch(1, want)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []WTPrimeState{fresh}, db.GetState(scHivemind))
}

func TestMatchMismatchLeavesState(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)
	hash := randHash()
	require.NoError(t, db.ApplyUpdates(0, []UpdateMsg{
		{Sidechain: scTest, WTPrime: hash, WorkScore: 1},
	}))
	before := db.GetState(scTest)
	beforeHash := db.GetSCDBHash()

	require.NoError(t, db.AddUpdatePackage(UpdatePackage{
		Height:  1,
		Updates: []UpdateMsg{{Sidechain: scTest, WTPrime: hash, WorkScore: 2}},
	}))

	ok, err := db.TryMatch(1, randHash())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, before, db.GetState(scTest))
	require.Equal(t, beforeHash, db.GetSCDBHash())
	require.Equal(t, int32(0), db.Height())

	// a package that lowers the score can never match
	require.NoError(t, db.AddUpdatePackage(UpdatePackage{
		Height:  3,
		Updates: []UpdateMsg{{Sidechain: scTest, WTPrime: hash, WorkScore: 0}},
	}))
	ok, err = db.TryMatch(3, ComputeDigest([]WTPrimeState{{
		Sidechain: scTest, WTPrime: hash, WorkScore: 0, BlocksLeft: 99,
	}}))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, before, db.GetState(scTest))
}

func TestMatchRetryAndOrder(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)
	hash := randHash()
	pkg := UpdatePackage{
		Height:  4,
		Updates: []UpdateMsg{{Sidechain: scTest, WTPrime: hash, WorkScore: 1}},
	}
	want := ComputeDigest([]WTPrimeState{{
		Sidechain: scTest, WTPrime: hash, WorkScore: 1, BlocksLeft: 100,
	}})

	// relayed twice, queued once
	require.NoError(t, db.AddUpdatePackage(pkg))
	require.NoError(t, db.AddUpdatePackage(pkg))
	require.Equal(t, 1, db.PendingPackages())

	ok, err := db.TryMatch(4, want)
	require.NoError(t, err)
	require.True(t, ok)

	// asking again for the same block is fine and changes nothing
	ok, err = db.TryMatch(4, want)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(100), db.GetState(scTest)[0].BlocksLeft)

	_, err = db.TryMatch(4, randHash())
	require.ErrorIs(t, err, ErrNonMonotonicHeight)
	_, err = db.TryMatch(3, want)
	require.ErrorIs(t, err, ErrNonMonotonicHeight)

	// late packages are ignored
	require.NoError(t, db.AddUpdatePackage(UpdatePackage{Height: 2}))
	require.Equal(t, 0, db.PendingPackages())
}

func TestMatchLastWriteAcrossPackages(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)
	hash := randHash()
	require.NoError(t, db.ApplyUpdates(0, []UpdateMsg{
		{Sidechain: scTest, WTPrime: hash, WorkScore: 1},
	}))

	for _, score := range []uint32{2, 3} {
		require.NoError(t, db.AddUpdatePackage(UpdatePackage{
			Height:  1,
			Updates: []UpdateMsg{{Sidechain: scTest, WTPrime: hash, WorkScore: score}},
		}))
	}

	// the earlier package alone is not what the queue adds up to
	first := ComputeDigest([]WTPrimeState{{
		Sidechain: scTest, WTPrime: hash, WorkScore: 2, BlocksLeft: 99,
	}})
	ok, err := db.TryMatch(1, first)
	require.NoError(t, err)
	require.False(t, ok)

	want := ComputeDigest([]WTPrimeState{{
		Sidechain: scTest, WTPrime: hash, WorkScore: 3, BlocksLeft: 99,
	}})
	ok, err = db.TryMatch(1, want)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(3), db.GetState(scTest)[0].WorkScore)
}

func TestAddUpdatePackageInvalid(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)
	err := db.AddUpdatePackage(UpdatePackage{
		Height: 1,
		Updates: []UpdateMsg{
			{Sidechain: scTest, WTPrime: randHash(), WorkScore: 1},
			{Sidechain: 42, WTPrime: randHash(), WorkScore: 1},
		},
	})
	require.ErrorIs(t, err, ErrInvalidSidechain)
	require.Equal(t, 0, db.PendingPackages())
}

func TestPackageQueueBound(t *testing.T) {
	params := smallParams(100, 100)
	params.MaxPendingPackages = 3
	db := New(params)

	for h := int32(1); h <= 5; h++ {
		require.NoError(t, db.AddUpdatePackage(UpdatePackage{
			Height:  h,
			Updates: []UpdateMsg{{Sidechain: scTest, WTPrime: randHash(), WorkScore: 1}},
		}))
	}
	require.Equal(t, 3, db.PendingPackages())
	require.Empty(t, db.pending.get(1))
	require.Empty(t, db.pending.get(2))
	require.Len(t, db.pending.get(5), 1)

	db.Reset()
	require.Equal(t, 0, db.PendingPackages())
}

func TestMatchNoPackages(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)
	hash := randHash()
	require.NoError(t, db.ApplyUpdates(0, []UpdateMsg{
		{Sidechain: scTest, WTPrime: hash, WorkScore: 1},
	}))

	// nothing relayed, the block only ages the SCDB
	want := ComputeDigest([]WTPrimeState{{
		Sidechain: scTest, WTPrime: hash, WorkScore: 1, BlocksLeft: 99,
	}})
	ok, err := db.TryMatch(1, want)
	require.NoError(t, err)
	require.True(t, ok)

	var empty chainhash.Hash
	require.NotEqual(t, empty, db.GetSCDBHash())
}

// TestQueueConcurrentMatch relays packages while blocks are matched and the
// SCDB is reset. Nothing at or below the SCDB height may stay queued.
func TestQueueConcurrentMatch(t *testing.T) {
	db := New(smallParams(1000, 100))
	const blocks = 200

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for h := int32(0); h < blocks; h++ {
			assert.NoError(t, db.AddUpdatePackage(UpdatePackage{Height: h}))
		}
	}()
	go func() {
		defer wg.Done()
		var empty chainhash.Hash
		for h := int32(0); h < blocks; h++ {
			// an error only means a reset put the height behind us
			_, _ = db.TryMatch(h, empty)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			db.Reset()
		}
	}()
	wg.Wait()

	height := db.Height()
	db.pending.mtx.Lock()
	defer db.pending.mtx.Unlock()
	for _, h := range db.pending.heightsLocked() {
		require.Greater(t, h, height)
	}
}

func TestResetDropsQueue(t *testing.T) {
	db := New(&sidechain.RegressionNetParams)
	hash := randHash()
	require.NoError(t, db.AddUpdatePackage(UpdatePackage{
		Height:  0,
		Updates: []UpdateMsg{{Sidechain: scTest, WTPrime: hash, WorkScore: 1}},
	}))
	db.Reset()

	// the package relayed before the reset is gone, so height 0 only
	// matches an empty SCDB
	var empty chainhash.Hash
	ok, err := db.TryMatch(0, empty)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, db.GetState(scTest))
}
