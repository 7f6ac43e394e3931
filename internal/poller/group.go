package poller

import (
	"context"
	"fmt"
	"sync"
)

// Group — набор poller'ов процесса: общий запуск, остановка и статусы.
type Group struct {
	mu      sync.RWMutex
	pollers []*Poller
	byName  map[string]*Poller
}

// NewGroup создаёт пустую Group.
func NewGroup() *Group {
	return &Group{byName: make(map[string]*Poller)}
}

// Add регистрирует poller'ы. Имена должны быть уникальны.
func (g *Group) Add(pollers ...*Poller) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range pollers {
		if _, exists := g.byName[p.Name()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicatePoller, p.Name())
		}
		g.byName[p.Name()] = p
		g.pollers = append(g.pollers, p)
	}
	return nil
}

// Get возвращает poller по имени.
func (g *Group) Get(name string) (*Poller, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPollerNotFound, name)
	}
	return p, nil
}

// Start запускает все poller'ы. При ошибке уже запущенные останавливаются.
func (g *Group) Start(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for i, p := range g.pollers {
		if err := p.Start(ctx); err != nil {
			for _, started := range g.pollers[:i] {
				started.Stop()
			}
			return fmt.Errorf("start poller %s: %w", p.Name(), err)
		}
	}
	return nil
}

// Stop останавливает все poller'ы и ждёт завершения выполняющихся тиков
// или отмены ctx.
func (g *Group) Stop(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, p := range g.pollers {
		p.Stop()
	}
	for _, p := range g.pollers {
		select {
		case <-p.Done():
		case <-ctx.Done():
			return fmt.Errorf("wait poller %s: %w", p.Name(), ctx.Err())
		}
	}
	return nil
}

// Statuses возвращает статусы в порядке регистрации.
func (g *Group) Statuses() []Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Status, 0, len(g.pollers))
	for _, p := range g.pollers {
		out = append(out, p.Status())
	}
	return out
}
