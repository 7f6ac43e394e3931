package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/housekeeper/internal/domain"
	"github.com/shaiso/housekeeper/internal/mq"
)

type fakeStore struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*domain.Schedule
	order     []uuid.UUID // порядок вставки, как у ORDER BY с равными ключами
	setErr    map[uuid.UUID]error
	listErr   error
	updates   int
}

func newFakeStore(schedules ...domain.Schedule) *fakeStore {
	s := &fakeStore{
		schedules: make(map[uuid.UUID]*domain.Schedule),
		setErr:    make(map[uuid.UUID]error),
	}
	for i := range schedules {
		sched := schedules[i]
		s.schedules[sched.ID] = &sched
		s.order = append(s.order, sched.ID)
	}
	return s
}

func (s *fakeStore) get(id uuid.UUID) domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.schedules[id]
}

func (s *fakeStore) ListDue(_ context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []domain.Schedule
	for _, id := range s.order {
		if sched := s.schedules[id]; sched.IsDue(now) {
			out = append(out, *sched)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextDueAt.Before(*out[j].NextDueAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListUnplanned(_ context.Context, limit int) ([]domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []domain.Schedule
	for _, id := range s.order {
		if sched := s.schedules[id]; sched.Enabled && sched.NextDueAt == nil && len(out) < limit {
			out = append(out, *sched)
		}
	}
	return out, nil
}

func (s *fakeStore) SetNextDue(_ context.Context, id uuid.UUID, lastDue *time.Time, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setErr[id]; err != nil {
		return err
	}

	sched := s.schedules[id]
	sched.NextDueAt = &nextDue
	if lastDue != nil {
		sched.LastDueAt = lastDue
	}
	s.updates++
	return nil
}

func (s *fakeStore) Disable(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setErr[id]; err != nil {
		return err
	}

	s.schedules[id].Disable(reason)
	s.updates++
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []mq.ScheduleDuePayload
	err       error
}

func (p *fakePublisher) PublishScheduleDue(_ context.Context, payload mq.ScheduleDuePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, payload)
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }
