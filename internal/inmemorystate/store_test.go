package inmemorystate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/propgrid/internal/pattern"
	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/propstate"
)

func newStore() (*Store, *pattern.Cache) {
	c := pattern.NewCache()
	return New(c), c
}

func key(name string, k int) propkey.PropertyKey {
	return propkey.New(propkey.QueryID(name), k)
}

func TestClaimWinsOnce(t *testing.T) {
	s, _ := newStore()
	k := key("q", 1)

	first := s.Claim(k, 10)
	require.Equal(t, propstate.OutcomeWon, first.Outcome)

	second := s.Claim(k, 20)
	require.Equal(t, propstate.OutcomeBusy, second.Outcome)
	require.NotNil(t, second.Done)

	reentrant := s.Claim(k, 10)
	assert.Equal(t, propstate.OutcomeSelfOwned, reentrant.Outcome)
}

func TestPublishWakesWaiters(t *testing.T) {
	s, c := newStore()
	k := key("q", 1)

	won := s.Claim(k, 10)
	require.Equal(t, propstate.OutcomeWon, won.Outcome)

	busy := s.Claim(k, 20)
	require.Equal(t, propstate.OutcomeBusy, busy.Outcome)

	go s.Publish(k, 10, "value", c.Intern(nil))

	select {
	case <-busy.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken by publish")
	}

	retry := s.Claim(k, 20)
	require.Equal(t, propstate.OutcomeEvaluated, retry.Outcome)
	assert.Equal(t, "value", retry.Value)
}

func TestAbandonReopensTheSlot(t *testing.T) {
	s, _ := newStore()
	k := key("q", 1)

	require.Equal(t, propstate.OutcomeWon, s.Claim(k, 10).Outcome)
	busy := s.Claim(k, 20)
	require.Equal(t, propstate.OutcomeBusy, busy.Outcome)

	s.Abandon(k, 10)

	select {
	case <-busy.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken by abandon")
	}

	// The loser can now win the claim itself.
	assert.Equal(t, propstate.OutcomeWon, s.Claim(k, 20).Outcome)
}

func TestAbandonByNonOwnerIsIgnored(t *testing.T) {
	s, _ := newStore()
	k := key("q", 1)

	require.Equal(t, propstate.OutcomeWon, s.Claim(k, 10).Outcome)
	s.Abandon(k, 99)

	assert.Equal(t, propstate.OutcomeSelfOwned, s.Claim(k, 10).Outcome)
}

func TestInvalidateReleasesPattern(t *testing.T) {
	s, c := newStore()
	k := key("q", 1)

	require.Equal(t, propstate.OutcomeWon, s.Claim(k, 10).Outcome)
	s.Publish(k, 10, 42, c.Intern([]propkey.Dependency{propkey.NewDependency("dep", 1)}))
	require.Equal(t, 1, c.Stats().Size)

	s.Invalidate(k)
	assert.Equal(t, 0, c.Stats().Size)

	_, ok := s.Lookup(k)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Counts().Unevaluated)
}

func TestInvalidateMidFlightStillPublishes(t *testing.T) {
	s, c := newStore()
	k := key("q", 1)

	require.Equal(t, propstate.OutcomeWon, s.Claim(k, 10).Outcome)
	busy := s.Claim(k, 20)
	require.Equal(t, propstate.OutcomeBusy, busy.Outcome)

	// Invalidation during computation does not stop the owner's publish,
	// and waiters still wake on it.
	s.Invalidate(k)
	s.Publish(k, 10, "stale-but-published", c.Intern(nil))

	select {
	case <-busy.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken")
	}

	v, ok := s.Lookup(k)
	require.True(t, ok)
	assert.Equal(t, "stale-but-published", v)
}

func TestAbandonAfterInvalidateWakesWaiters(t *testing.T) {
	s, _ := newStore()
	k := key("q", 1)

	require.Equal(t, propstate.OutcomeWon, s.Claim(k, 10).Outcome)
	busy := s.Claim(k, 20)
	require.Equal(t, propstate.OutcomeBusy, busy.Outcome)

	// Invalidation strips ownership mid-computation. If the ex-owner's
	// execution then errors, its abandon must still close the generation's
	// done channel or the waiter blocks forever.
	s.Invalidate(k)
	s.Abandon(k, 10)

	select {
	case <-busy.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken by abandon after invalidate")
	}

	// The woken loser re-claims and wins.
	assert.Equal(t, propstate.OutcomeWon, s.Claim(k, 20).Outcome)
}

func TestClearReleasesEverything(t *testing.T) {
	s, c := newStore()

	for i := 0; i < 10; i++ {
		k := key("q", i)
		require.Equal(t, propstate.OutcomeWon, s.Claim(k, 1).Outcome)
		s.Publish(k, 1, i, c.Intern([]propkey.Dependency{propkey.NewDependency("dep", i)}))
	}
	require.Equal(t, 10, s.Counts().Total())

	s.Clear()
	assert.Equal(t, 0, s.Counts().Total())
	assert.Equal(t, 0, c.Stats().Size)
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	s, _ := newStore()
	k := key("q", 1)
	const goroutines = 32

	var wg sync.WaitGroup
	var winners, losers sync.Map
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(owner uint64) {
			defer wg.Done()
			res := s.Claim(k, owner)
			if res.Outcome == propstate.OutcomeWon {
				winners.Store(owner, true)
			} else {
				losers.Store(owner, true)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	count := 0
	winners.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count, "exactly one claimant must win")
}
