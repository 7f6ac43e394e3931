package leader

import (
	"sync"
	"sync/atomic"
)

// State — текущая роль инстанса и уведомления о её смене.
type State interface {
	IsLeader() bool

	// Subscribe возвращает канал, в который приходит новая роль при каждой смене.
	// Канал буферизован на одно значение; медленный подписчик видит последнее.
	Subscribe() <-chan bool
}

// broadcaster хранит роль и рассылает изменения подписчикам.
type broadcaster struct {
	leader atomic.Bool

	mu   sync.Mutex
	subs []chan bool
}

func (b *broadcaster) IsLeader() bool {
	return b.leader.Load()
}

func (b *broadcaster) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// set меняет роль; возвращает true, если роль изменилась.
func (b *broadcaster) set(leader bool) bool {
	if b.leader.Swap(leader) == leader {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		// вытесняем непрочитанное значение, чтобы подписчик видел последнее
		select {
		case <-ch:
		default:
		}
		ch <- leader
	}
	return true
}

// Static — роль, заданная вручную.
type Static struct {
	broadcaster
}

// NewStatic создаёт Static с начальной ролью.
func NewStatic(leader bool) *Static {
	s := &Static{}
	s.leader.Store(leader)
	return s
}

// Set меняет роль и уведомляет подписчиков, если она изменилась.
func (s *Static) Set(leader bool) {
	s.set(leader)
}
