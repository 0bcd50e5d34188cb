package scdb

import (
	"bytes"
	"testing"

	"github.com/mit-dci/sidechaindb/sidechain"
	"github.com/stretchr/testify/require"
)

func TestUpdatePackageSerialize(t *testing.T) {
	pkg := UpdatePackage{
		Height: 1234,
		Updates: []UpdateMsg{
			{Sidechain: scTest, WTPrime: randHash(), WorkScore: 7},
			{Sidechain: scWimble, WTPrime: randHash(), WorkScore: 1 << 20},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, pkg.Serialize(&buf))
	require.Equal(t, pkg.SerializeSize(), buf.Len())

	var got UpdatePackage
	require.NoError(t, got.Deserialize(bytes.NewReader(buf.Bytes())))
	require.Equal(t, pkg, got)
	require.Equal(t, pkg.PackageID(), got.PackageID())

	got.Updates[1].WorkScore++
	require.NotEqual(t, pkg.PackageID(), got.PackageID())

	// truncated input
	err := got.Deserialize(bytes.NewReader(buf.Bytes()[:buf.Len()-1]))
	require.Error(t, err)
}

func TestSnapshotRestoresDigest(t *testing.T) {
	params := smallParams(10, 2)
	db := New(params)

	approvedWT := randHash()
	require.NoError(t, db.ApplyUpdates(0, []UpdateMsg{
		{Sidechain: scHivemind, WTPrime: approvedWT, WorkScore: 2},
	}))
	_, err := db.AdvancePeriodIfElapsed(10)
	require.NoError(t, err)
	require.NoError(t, db.ApplyUpdates(11, []UpdateMsg{
		{Sidechain: scWimble, WTPrime: randHash(), WorkScore: 1},
		{Sidechain: scTest, WTPrime: randHash(), WorkScore: 1},
		{Sidechain: scWimble, WTPrime: randHash(), WorkScore: 1},
	}))

	var buf bytes.Buffer
	require.NoError(t, db.Serialize(&buf))
	require.Equal(t, db.SerializeSize(), buf.Len())

	restored := New(params)
	require.NoError(t, restored.Deserialize(bytes.NewReader(buf.Bytes())))
	require.True(t, restored.Equal(db))
	require.Equal(t, db.GetSCDBHash(), restored.GetSCDBHash())
	require.True(t, restored.CheckWorkScore(scHivemind, approvedWT))
	require.Equal(t, int32(11), restored.Height())

	// the period tracker came back too
	_, err = restored.AdvancePeriodIfElapsed(10)
	require.ErrorIs(t, err, ErrNonMonotonicHeight)

	// snapshot from a different network setup with unknown sidechains
	other := sidechain.RegressionNetParams
	other.Sidechains = other.Sidechains[:1]
	err = New(&other).Deserialize(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrInvalidSidechain)
}
