package scdb

import (
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/mit-dci/sidechaindb/sidechain"
)

// scdbState is everything that goes into consensus. It has no locking of
// its own; SidechainDB guards it and swaps whole instances.
type scdbState struct {
	params *sidechain.Params

	// WT^s of the current period per sidechain, in the order they were
	// first seen
	active map[uint8][]WTPrimeState

	// WT^s that reached the minimum work score in a finished period
	approved map[wtKey]WTPrimeState

	period PeriodTracker

	// last block height the state was updated for, -1 before any
	height int32
}

func newState(params *sidechain.Params) *scdbState {
	return &scdbState{
		params:   params,
		active:   make(map[uint8][]WTPrimeState),
		approved: make(map[wtKey]WTPrimeState),
		period:   NewPeriodTracker(params.VerificationPeriod),
		height:   -1,
	}
}

// clone makes a deep copy; nothing is shared with s.
func (s *scdbState) clone() *scdbState {
	c := &scdbState{
		params:   s.params,
		active:   make(map[uint8][]WTPrimeState, len(s.active)),
		approved: make(map[wtKey]WTPrimeState, len(s.approved)),
		period:   s.period,
		height:   s.height,
	}
	for sc, wts := range s.active {
		c.active[sc] = append([]WTPrimeState(nil), wts...)
	}
	for k, v := range s.approved {
		c.approved[k] = v
	}
	return c
}

// find returns the index of a WT^ in its sidechain's slice, or -1.
func (s *scdbState) find(sc uint8, hash chainhash.Hash) int {
	for i := range s.active[sc] {
		if s.active[sc][i].WTPrime == hash {
			return i
		}
	}
	return -1
}

// sidechainOf returns which sidechain currently tracks hash.
func (s *scdbState) sidechainOf(hash chainhash.Hash) (uint8, bool) {
	for sc, wts := range s.active {
		for i := range wts {
			if wts[i].WTPrime == hash {
				return sc, true
			}
		}
	}
	return 0, false
}

// checkKey makes sure a WT^ hash named for sidechain sc is not live on
// another sidechain, either in the state or earlier in the same batch.
func (s *scdbState) checkKey(
	sc uint8, hash chainhash.Hash, batch map[chainhash.Hash]uint8) error {

	if !s.params.IsValid(sc) {
		return errInvalidSidechain(sc)
	}
	if have, ok := s.sidechainOf(hash); ok && have != sc {
		return errDuplicateWTPrime(hash, have, sc)
	}
	if have, ok := batch[hash]; ok && have != sc {
		return errDuplicateWTPrime(hash, have, sc)
	}
	batch[hash] = sc
	return nil
}

// updateIndex sets the listed states as they are given. Every WT^ that
// isn't listed ages by one block. A tracked WT^ can't get more blocks left
// than it has, and listing one that already expired changes nothing.
func (s *scdbState) updateIndex(height int32, states []WTPrimeState) error {
	if height <= s.height {
		return errNonMonotonicHeight(height, s.height)
	}

	batch := make(map[chainhash.Hash]uint8, len(states))
	for i := range states {
		err := s.checkKey(states[i].Sidechain, states[i].WTPrime, batch)
		if err != nil {
			return err
		}
		if states[i].BlocksLeft > s.params.VerificationPeriod {
			return errInvalidBlocksLeft(
				states[i].BlocksLeft, s.params.VerificationPeriod)
		}
		j := s.find(states[i].Sidechain, states[i].WTPrime)
		if j < 0 {
			continue
		}
		have := s.active[states[i].Sidechain][j].BlocksLeft
		if have > 0 && states[i].BlocksLeft > have {
			return errInvalidBlocksLeft(states[i].BlocksLeft, have)
		}
	}

	listed := make(map[wtKey]bool, len(states))
	for _, st := range states {
		listed[st.key()] = true
	}
	for sc, wts := range s.active {
		for i := range wts {
			if !listed[wts[i].key()] && wts[i].BlocksLeft > 0 {
				s.active[sc][i].BlocksLeft--
			}
		}
	}

	for _, st := range states {
		i := s.find(st.Sidechain, st.WTPrime)
		if i < 0 {
			s.active[st.Sidechain] = append(s.active[st.Sidechain], st)
			continue
		}
		if s.active[st.Sidechain][i].BlocksLeft == 0 {
			log.Tracef("ignoring state for expired WT^ %s", st.WTPrime)
			continue
		}
		s.active[st.Sidechain][i] = st
	}

	s.height = height
	return nil
}

// applyUpdates moves the state forward one block using score updates.
// WT^s already tracked take the new score unless they expired, new WT^s
// start with a full period, and every WT^ that was tracked before this
// block ages by one. If two updates name the same WT^ the later one wins.
// Nothing is modified when an error is returned.
func (s *scdbState) applyUpdates(height int32, msgs []UpdateMsg) error {
	if height <= s.height {
		return errNonMonotonicHeight(height, s.height)
	}

	batch := make(map[chainhash.Hash]uint8, len(msgs))
	final := make(map[wtKey]uint32, len(msgs))
	for i := range msgs {
		err := s.checkKey(msgs[i].Sidechain, msgs[i].WTPrime, batch)
		if err != nil {
			return err
		}
		final[msgs[i].key()] = msgs[i].WorkScore
	}
	for k, score := range final {
		i := s.find(k.sidechain, k.wtPrime)
		if i < 0 {
			continue
		}
		have := s.active[k.sidechain][i]
		if have.BlocksLeft > 0 && score < have.WorkScore {
			return errScoreDecrease(k.wtPrime, have.WorkScore, score)
		}
	}

	// everything tracked before this block sits below these indexes
	tracked := make(map[uint8]int, len(s.active))
	for sc, wts := range s.active {
		tracked[sc] = len(wts)
	}

	for _, msg := range msgs {
		i := s.find(msg.Sidechain, msg.WTPrime)
		if i < 0 {
			s.active[msg.Sidechain] = append(s.active[msg.Sidechain],
				WTPrimeState{
					Sidechain:  msg.Sidechain,
					WTPrime:    msg.WTPrime,
					WorkScore:  msg.WorkScore,
					BlocksLeft: s.params.VerificationPeriod,
				})
			log.Debugf("new WT^ %s on sidechain %d score %d",
				msg.WTPrime, msg.Sidechain, msg.WorkScore)
			continue
		}
		wt := &s.active[msg.Sidechain][i]
		if i < tracked[msg.Sidechain] && wt.BlocksLeft == 0 {
			log.Tracef("ignoring update for expired WT^ %s", msg.WTPrime)
			continue
		}
		wt.WorkScore = msg.WorkScore
	}

	for sc, n := range tracked {
		for i := 0; i < n; i++ {
			if s.active[sc][i].BlocksLeft > 0 {
				s.active[sc][i].BlocksLeft--
			}
		}
	}

	s.height = height
	return nil
}

// advance runs the period tracker and, if the period ended, archives the
// approved WT^s and empties the active set.
func (s *scdbState) advance(height int32) (bool, error) {
	elapsed, err := s.period.Advance(height)
	if err != nil || !elapsed {
		return false, err
	}

	var kept, dropped int
	for _, wts := range s.active {
		for _, wt := range wts {
			if wt.WorkScore >= s.params.MinWorkScore {
				s.approved[wt.key()] = wt
				kept++
				continue
			}
			dropped++
		}
	}
	s.active = make(map[uint8][]WTPrimeState)

	log.Infof("verification period ended at height %d: %d WT^ approved, "+
		"%d dropped", height, kept, dropped)
	return true, nil
}

func (s *scdbState) checkWorkScore(sc uint8, hash chainhash.Hash) bool {
	if i := s.find(sc, hash); i >= 0 {
		return s.active[sc][i].WorkScore >= s.params.MinWorkScore
	}
	wt, ok := s.approved[wtKey{sidechain: sc, wtPrime: hash}]
	return ok && wt.WorkScore >= s.params.MinWorkScore
}

// sorted returns all active states in canonical order.
func (s *scdbState) sorted() []WTPrimeState {
	var all []WTPrimeState
	for _, wts := range s.active {
		all = append(all, wts...)
	}
	sortStates(all)
	return all
}

// sortedApproved returns the archive in canonical order.
func (s *scdbState) sortedApproved() []WTPrimeState {
	all := make([]WTPrimeState, 0, len(s.approved))
	for _, wt := range s.approved {
		all = append(all, wt)
	}
	sortStates(all)
	return all
}

func (s *scdbState) digest() chainhash.Hash {
	return merkleDigest(s.sorted())
}

func sortStates(states []WTPrimeState) {
	sort.Slice(states, func(i, j int) bool {
		return less(&states[i], &states[j])
	})
}
