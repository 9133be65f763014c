// Package reservationtest provides in-memory stand-ins for the reservation
// store and its collaborators.
package reservationtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/room"
)

// Store is an in-memory reservation.Store. Transactions are serialized by a
// single mutex and work on a copy that replaces the state only on success.
type Store struct {
	mu    sync.RWMutex
	state *state

	// FailCommit, when set, is returned instead of committing the next transaction.
	FailCommit error
	// BeforeTx, when set, runs once before the next transaction begins. Tests use it
	// to commit a competing write between a read and the transaction that follows.
	BeforeTx func()
}

type state struct {
	rooms        map[string]room.Room
	reservations map[string]*reservation.Reservation
	seq          map[string]int
	next         int
}

func NewStore() *Store {
	return &Store{state: &state{
		rooms:        make(map[string]room.Room),
		reservations: make(map[string]*reservation.Reservation),
		seq:          make(map[string]int),
	}}
}

func (s *state) clone() *state {
	cp := &state{
		rooms:        make(map[string]room.Room, len(s.rooms)),
		reservations: make(map[string]*reservation.Reservation, len(s.reservations)),
		seq:          make(map[string]int, len(s.seq)),
		next:         s.next,
	}
	for k, v := range s.rooms {
		cp.rooms[k] = v
	}
	for k, v := range s.reservations {
		cp.reservations[k] = v.Clone()
	}
	for k, v := range s.seq {
		cp.seq[k] = v
	}
	return cp
}

// AddRoom seeds a room.
func (s *Store) AddRoom(rm room.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.rooms[rm.ID] = rm
}

// Put seeds or overwrites a reservation directly, bypassing the coordinator.
func (s *Store) Put(r *reservation.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.put(r)
}

// All returns copies of every stored reservation in creation order.
func (s *Store) All() []*reservation.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ordered()
}

func (s *state) put(r *reservation.Reservation) {
	if _, ok := s.seq[r.ID]; !ok {
		s.next++
		s.seq[r.ID] = s.next
	}
	s.reservations[r.ID] = r.Clone()
}

func (s *state) ordered() []*reservation.Reservation {
	out := make([]*reservation.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

func (s *Store) Reader() reservation.Repository {
	return &repo{store: s}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo reservation.Repository) error) error {
	s.mu.Lock()
	if hook := s.BeforeTx; hook != nil {
		s.BeforeTx = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &repo{store: s, tx: work}); err != nil {
		return err
	}
	if s.FailCommit != nil {
		err := s.FailCommit
		s.FailCommit = nil
		return err
	}
	s.state = work
	return nil
}

type repo struct {
	store *Store
	tx    *state // nil outside a transaction
}

func (r *repo) read(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.store.state)
}

func (r *repo) write(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r *repo) GetRoom(_ context.Context, roomID string) (*room.Room, error) {
	var out *room.Room
	err := r.read(func(st *state) error {
		rm, ok := st.rooms[roomID]
		if !ok {
			return room.ErrNotFound
		}
		out = &rm
		return nil
	})
	return out, err
}

func (r *repo) LockRoom(ctx context.Context, roomID string) (*room.Room, error) {
	return r.GetRoom(ctx, roomID)
}

func (r *repo) GetByID(_ context.Context, id string) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := r.read(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return reservation.ErrNotFound
		}
		out = res.Clone()
		return nil
	})
	return out, err
}

func (r *repo) GetByIDForUpdate(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *repo) FindConflicts(_ context.Context, roomID string, iv reservation.Interval, excludeID string) ([]*reservation.Reservation, error) {
	var out []*reservation.Reservation
	err := r.read(func(st *state) error {
		out = reservation.FindConflicts(st.ordered(), roomID, iv, excludeID)
		return nil
	})
	return out, err
}

func (r *repo) List(_ context.Context, f reservation.Filter) ([]*reservation.Reservation, int, error) {
	var (
		out   []*reservation.Reservation
		total int
	)
	err := r.read(func(st *state) error {
		all := st.ordered()
		// Newest first, like the SQL implementation.
		for i := len(all) - 1; i >= 0; i-- {
			res := all[i]
			if f.CustomerID != "" && res.CustomerID != f.CustomerID {
				continue
			}
			if f.VendorID != "" && res.VendorID != f.VendorID {
				continue
			}
			if f.RoomID != "" && res.RoomID != f.RoomID {
				continue
			}
			if f.Status != "" && res.Status != f.Status {
				continue
			}
			out = append(out, res)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	total = len(out)
	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start >= len(out) {
		return nil, total, nil
	}
	end := min(start+size, len(out))
	return out[start:end], total, nil
}

var errDuplicate = errors.New("reservationtest: duplicate reservation id")

func (r *repo) Create(_ context.Context, res *reservation.Reservation) error {
	return r.write(func(st *state) error {
		if _, ok := st.reservations[res.ID]; ok {
			return errDuplicate
		}
		st.put(res)
		return nil
	})
}

func (r *repo) Save(_ context.Context, res *reservation.Reservation) error {
	return r.write(func(st *state) error {
		if _, ok := st.reservations[res.ID]; !ok {
			return reservation.ErrNotFound
		}
		// Mirrors the exclusion constraint.
		if res.Status.HoldsRoom() {
			if c := reservation.FindConflicts(st.ordered(), res.RoomID, res.Interval, res.ID); len(c) > 0 {
				return &reservation.ConflictError{}
			}
		}
		st.put(res)
		return nil
	})
}

func (r *repo) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]string, error) {
	return r.ids(limit, func(res *reservation.Reservation) bool {
		return res.Status == reservation.StatusPending &&
			res.HoldExpiresAt != nil && !res.HoldExpiresAt.After(now)
	})
}

func (r *repo) ListElapsed(_ context.Context, now time.Time, limit int) ([]string, error) {
	return r.ids(limit, func(res *reservation.Reservation) bool {
		return res.Status == reservation.StatusConfirmed && res.Interval.Elapsed(now)
	})
}

func (r *repo) ListRefundsDue(_ context.Context, staleBefore time.Time, limit int) ([]string, error) {
	return r.ids(limit, func(res *reservation.Reservation) bool {
		if res.Status != reservation.StatusCancelled {
			return false
		}
		switch res.Refund.Status {
		case reservation.RefundFailed:
			return true
		case reservation.RefundPending:
			return res.Refund.UpdatedAt != nil && res.Refund.UpdatedAt.Before(staleBefore)
		}
		return false
	})
}

func (r *repo) ids(limit int, match func(*reservation.Reservation) bool) ([]string, error) {
	var out []string
	err := r.read(func(st *state) error {
		for _, res := range st.ordered() {
			if len(out) >= limit {
				break
			}
			if match(res) {
				out = append(out, res.ID)
			}
		}
		return nil
	})
	return out, err
}
