package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/token-wrapper/pkg/database/query"
	"github.com/code-payments/token-wrapper/pkg/reserve"
)

func RunTests(t *testing.T, s reserve.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s reserve.Store){
		testRoundTrip,
		testInvalidSnapshot,
		testGetAllByMint,
		testGetByRun,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s reserve.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetLatest(ctx, "underlying")
		assert.Equal(t, reserve.ErrNotFound, err)

		expected := newSnapshot(uuid.New().String(), "underlying", 1_000, 1_000, time.Now())
		cloned := expected.Clone()

		require.NoError(t, s.Put(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetLatest(ctx, "underlying")
		require.NoError(t, err)
		assertEquivalentSnapshots(t, cloned, actual)
		assert.Equal(t, expected.Id, actual.Id)

		assert.Equal(t, reserve.ErrExists, s.Put(ctx, cloned))

		later := newSnapshot(uuid.New().String(), "underlying", 1_000, 900, time.Now().Add(time.Minute))
		require.NoError(t, s.Put(ctx, later))

		actual, err = s.GetLatest(ctx, "underlying")
		require.NoError(t, err)
		assert.Equal(t, later.RunId, actual.RunId)
		assert.Equal(t, reserve.StatusUnderCollateralized, actual.Status)
	})
}

func testInvalidSnapshot(t *testing.T, s reserve.Store) {
	t.Run("testInvalidSnapshot", func(t *testing.T) {
		ctx := context.Background()

		for _, modify := range []func(*reserve.Snapshot){
			func(s *reserve.Snapshot) { s.RunId = "not-a-uuid" },
			func(s *reserve.Snapshot) { s.UnderlyingMint = "" },
			func(s *reserve.Snapshot) { s.WrapperMint = "" },
			func(s *reserve.Snapshot) { s.ReserveTokenAccount = "" },
			func(s *reserve.Snapshot) { s.Status = reserve.StatusOverCollateralized },
			func(s *reserve.Snapshot) { s.CreatedAt = time.Time{} },
		} {
			snapshot := newSnapshot(uuid.New().String(), "underlying", 10, 10, time.Now())
			modify(snapshot)
			assert.Error(t, s.Put(ctx, snapshot))
		}

		_, err := s.GetLatest(ctx, "underlying")
		assert.Equal(t, reserve.ErrNotFound, err)
	})
}

func testGetAllByMint(t *testing.T, s reserve.Store) {
	t.Run("testGetAllByMint", func(t *testing.T) {
		ctx := context.Background()
		start := time.Now().Add(-time.Hour)

		var expected []*reserve.Snapshot
		for i := 0; i < 5; i++ {
			snapshot := newSnapshot(uuid.New().String(), "underlying", uint64(i), uint64(i+1), start.Add(time.Duration(i)*time.Minute))
			require.NoError(t, s.Put(ctx, snapshot))
			expected = append(expected, snapshot)
		}
		require.NoError(t, s.Put(ctx, newSnapshot(uuid.New().String(), "other", 1, 1, start)))

		_, err := s.GetAllByMint(ctx, "unknown", query.Ascending, 0)
		assert.Equal(t, reserve.ErrNotFound, err)

		actual, err := s.GetAllByMint(ctx, "underlying", query.Ascending, 0)
		require.NoError(t, err)
		require.Len(t, actual, len(expected))
		for i := range expected {
			assertEquivalentSnapshots(t, expected[i], actual[i])
		}

		actual, err = s.GetAllByMint(ctx, "underlying", query.Descending, 2)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assertEquivalentSnapshots(t, expected[4], actual[0])
		assertEquivalentSnapshots(t, expected[3], actual[1])

		actual, err = s.GetAllByMint(ctx, "underlying", query.Ascending, 3)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assertEquivalentSnapshots(t, expected[0], actual[0])
		assertEquivalentSnapshots(t, expected[2], actual[2])
	})
}

func testGetByRun(t *testing.T, s reserve.Store) {
	t.Run("testGetByRun", func(t *testing.T) {
		ctx := context.Background()
		runId := uuid.New().String()

		_, err := s.GetByRun(ctx, runId)
		assert.Equal(t, reserve.ErrNotFound, err)

		for _, mint := range []string{"c", "a", "b"} {
			require.NoError(t, s.Put(ctx, newSnapshot(runId, mint, 5, 5, time.Now())))
		}
		require.NoError(t, s.Put(ctx, newSnapshot(uuid.New().String(), "a", 5, 5, time.Now())))

		actual, err := s.GetByRun(ctx, runId)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		for i, mint := range []string{"a", "b", "c"} {
			assert.Equal(t, runId, actual[i].RunId)
			assert.Equal(t, mint, actual[i].UnderlyingMint)
		}
	})
}

func newSnapshot(runId, underlyingMint string, supply, balance uint64, createdAt time.Time) *reserve.Snapshot {
	return &reserve.Snapshot{
		RunId: runId,

		UnderlyingMint:      underlyingMint,
		WrapperMint:         fmt.Sprintf("%s-wrapper", underlyingMint),
		ReserveTokenAccount: fmt.Sprintf("%s-reserve", underlyingMint),
		Decimals:            6,

		WrapperSupply:  supply,
		ReserveBalance: balance,
		Status:         reserve.StatusFor(supply, balance),

		Slot:      42,
		CreatedAt: createdAt,
	}
}

func assertEquivalentSnapshots(t *testing.T, obj1, obj2 *reserve.Snapshot) {
	assert.Equal(t, obj1.RunId, obj2.RunId)
	assert.Equal(t, obj1.UnderlyingMint, obj2.UnderlyingMint)
	assert.Equal(t, obj1.WrapperMint, obj2.WrapperMint)
	assert.Equal(t, obj1.ReserveTokenAccount, obj2.ReserveTokenAccount)
	assert.Equal(t, obj1.Decimals, obj2.Decimals)
	assert.Equal(t, obj1.WrapperSupply, obj2.WrapperSupply)
	assert.Equal(t, obj1.ReserveBalance, obj2.ReserveBalance)
	assert.Equal(t, obj1.Status, obj2.Status)
	assert.Equal(t, obj1.Slot, obj2.Slot)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
