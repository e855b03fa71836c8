package registrations

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evex-campus/backend/internal/models"
)

func intp(n int) *int { return &n }

func TestDecideRegister(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Outcome
	}{
		{"unlimited", Snapshot{Capacity: nil, ActiveCount: 10000}, OutcomeRegistered},
		{"room left", Snapshot{Capacity: intp(10), ActiveCount: 9}, OutcomeRegistered},
		{"exactly full", Snapshot{Capacity: intp(10), ActiveCount: 10}, OutcomeWaitlisted},
		{"over full", Snapshot{Capacity: intp(10), ActiveCount: 11}, OutcomeWaitlisted},
		{"zero capacity", Snapshot{Capacity: intp(0), ActiveCount: 0}, OutcomeWaitlisted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DecideRegister(tt.snap))
		})
	}
}

func TestPromotableCount(t *testing.T) {
	tests := []struct {
		name        string
		snap        Snapshot
		waitlistLen int
		want        int
	}{
		{"no room", Snapshot{Capacity: intp(5), ActiveCount: 5}, 3, 0},
		{"capacity shrunk below active", Snapshot{Capacity: intp(3), ActiveCount: 5}, 3, 0},
		{"room exceeds waitlist", Snapshot{Capacity: intp(10), ActiveCount: 5}, 2, 2},
		{"waitlist exceeds room", Snapshot{Capacity: intp(7), ActiveCount: 5}, 6, 2},
		{"unlimited drains waitlist", Snapshot{Capacity: nil, ActiveCount: 5}, 4, 4},
		{"empty waitlist", Snapshot{Capacity: intp(10), ActiveCount: 0}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PromotableCount(tt.snap, tt.waitlistLen))
		})
	}
}

func TestNextPosition(t *testing.T) {
	require.Equal(t, 1, NextPosition(0))
	require.Equal(t, 6, NextPosition(5))
}

// eventState models one event's registration state with the same
// serialization discipline the database row lock provides, down to the
// one-row-per-user rule: cancellation flips the row's status and
// re-registration reuses the row instead of creating a second one.
type regRow struct {
	status models.RegistrationStatus
}

type waitEntry struct {
	user     int
	position int
}

type eventState struct {
	mu       sync.Mutex
	capacity *int
	rows     map[int]*regRow
	waitlist []waitEntry // join order
}

func newEventState(capacity *int) *eventState {
	return &eventState{capacity: capacity, rows: make(map[int]*regRow)}
}

func (s *eventState) activeCount() int {
	n := 0
	for _, r := range s.rows {
		if r.status.Active() {
			n++
		}
	}
	return n
}

func (s *eventState) register(user int) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[user]
	if row != nil {
		switch {
		case row.status.Active():
			return "", ErrAlreadyRegistered
		case row.status == models.Waitlisted:
			return "", ErrAlreadyWaitlisted
		}
	}
	outcome := DecideRegister(Snapshot{Capacity: s.capacity, ActiveCount: s.activeCount()})
	if row == nil {
		row = &regRow{}
		s.rows[user] = row
	}
	if outcome == OutcomeRegistered {
		row.status = models.Registered
		return outcome, nil
	}
	row.status = models.Waitlisted
	max := 0
	if len(s.waitlist) > 0 {
		max = s.waitlist[len(s.waitlist)-1].position
	}
	s.waitlist = append(s.waitlist, waitEntry{user: user, position: NextPosition(max)})
	return outcome, nil
}

// removeWaitlistAt deletes entry i and closes the position gap.
func (s *eventState) removeWaitlistAt(i int) {
	s.waitlist = append(s.waitlist[:i], s.waitlist[i+1:]...)
	for j := i; j < len(s.waitlist); j++ {
		s.waitlist[j].position--
	}
}

func (s *eventState) cancel(user int) (promoted int, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[user]
	if row == nil || row.status == models.Cancelled {
		return 0, false, ErrNotRegistered
	}
	wasActive := row.status.Active()
	if row.status == models.Waitlisted {
		for i, e := range s.waitlist {
			if e.user == user {
				s.removeWaitlistAt(i)
				break
			}
		}
	}
	row.status = models.Cancelled
	if !wasActive || len(s.waitlist) == 0 {
		return 0, false, nil
	}
	if !(Snapshot{Capacity: s.capacity, ActiveCount: s.activeCount()}).HasRoom() {
		return 0, false, nil
	}
	head := s.waitlist[0]
	s.removeWaitlistAt(0)
	s.rows[head.user].status = models.Registered
	return head.user, true, nil
}

func (s *eventState) positions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.waitlist))
	for i, e := range s.waitlist {
		out[i] = e.position
	}
	return out
}

func TestConcurrentRegistrationFillsExactlyToCapacity(t *testing.T) {
	const (
		capacity    = 50
		registrants = 200
	)
	state := newEventState(intp(capacity))

	var wg sync.WaitGroup
	outcomes := make([]Outcome, registrants)
	for i := 0; i < registrants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = state.register(i)
		}(i)
	}
	wg.Wait()

	var registered, waitlisted int
	for _, o := range outcomes {
		switch o {
		case OutcomeRegistered:
			registered++
		case OutcomeWaitlisted:
			waitlisted++
		}
	}
	require.Equal(t, capacity, registered)
	require.Equal(t, registrants-capacity, waitlisted)
	require.Equal(t, capacity, state.activeCount())

	// Positions must be the gapless sequence 1..N in join order.
	require.Len(t, state.waitlist, registrants-capacity)
	for i, e := range state.waitlist {
		require.Equal(t, i+1, e.position)
	}
}

func TestCancelPromotesExactlyOneAndResequences(t *testing.T) {
	state := newEventState(intp(2))
	for user := 1; user <= 5; user++ {
		_, err := state.register(user)
		require.NoError(t, err)
	}
	// Users 1 and 2 hold the seats; 3, 4, 5 queue at positions 1, 2, 3.

	promoted, ok, err := state.cancel(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, promoted)
	require.Equal(t, 2, state.activeCount())
	require.Equal(t, []int{1, 2}, state.positions())

	promoted, ok, err = state.cancel(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, promoted)
	require.Equal(t, 2, state.activeCount())
	require.Equal(t, []int{1}, state.positions())
}

func TestCancelWithEmptyWaitlistFreesSeat(t *testing.T) {
	state := newEventState(intp(2))
	for user := 1; user <= 2; user++ {
		_, err := state.register(user)
		require.NoError(t, err)
	}

	_, ok, err := state.cancel(1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, state.activeCount())

	outcome, err := state.register(3)
	require.NoError(t, err)
	require.Equal(t, OutcomeRegistered, outcome)
	require.Equal(t, 2, state.activeCount())
}

func TestCapacityShrinkDoesNotPromote(t *testing.T) {
	// Capacity lowered below the active count: cancelling one active
	// registration still leaves the event over capacity, so the waitlist
	// head stays put.
	state := newEventState(intp(3))
	for user := 1; user <= 4; user++ {
		_, err := state.register(user)
		require.NoError(t, err)
	}
	state.capacity = intp(1)

	_, ok, err := state.cancel(1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, state.activeCount())
	require.Equal(t, []int{1}, state.positions())
}

func TestReRegisterReusesRow(t *testing.T) {
	state := newEventState(intp(1))
	_, err := state.register(7)
	require.NoError(t, err)
	row := state.rows[7]

	_, _, err = state.cancel(7)
	require.NoError(t, err)
	require.Equal(t, models.Cancelled, row.status)

	outcome, err := state.register(7)
	require.NoError(t, err)
	require.Equal(t, OutcomeRegistered, outcome)
	require.Len(t, state.rows, 1)
	require.Same(t, row, state.rows[7])
	require.Equal(t, models.Registered, row.status)
}

func TestDuplicateRegisterConflicts(t *testing.T) {
	state := newEventState(intp(1))
	_, err := state.register(1)
	require.NoError(t, err)
	_, err = state.register(1)
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	outcome, err := state.register(2)
	require.NoError(t, err)
	require.Equal(t, OutcomeWaitlisted, outcome)
	_, err = state.register(2)
	require.ErrorIs(t, err, ErrAlreadyWaitlisted)
}

func TestCancelTwiceFails(t *testing.T) {
	state := newEventState(intp(1))
	_, err := state.register(1)
	require.NoError(t, err)

	_, _, err = state.cancel(1)
	require.NoError(t, err)
	_, _, err = state.cancel(1)
	require.ErrorIs(t, err, ErrNotRegistered)
	require.Len(t, state.rows, 1)
}

func TestWaitlistedCancelClosesGapWithoutPromotion(t *testing.T) {
	state := newEventState(intp(1))
	for user := 1; user <= 4; user++ {
		_, err := state.register(user)
		require.NoError(t, err)
	}
	// User 1 holds the seat; 2, 3, 4 queue at positions 1, 2, 3.

	_, ok, err := state.cancel(3)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, state.activeCount())
	require.Equal(t, []int{1, 2}, state.positions())
	require.Equal(t, 2, state.waitlist[0].user)
	require.Equal(t, 4, state.waitlist[1].user)
}
