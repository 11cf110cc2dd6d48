package readiness

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ComponentStatus struct {
	Name      string    `json:"name"`
	Ready     bool      `json:"ready"`
	StartedAt time.Time `json:"started_at"`
	ReadyAt   time.Time `json:"ready_at,omitempty"`
}

type TrackerStatus struct {
	Ready      bool              `json:"ready"`
	Components []ComponentStatus `json:"components"`
	ReadyAt    time.Time         `json:"ready_at,omitempty"`
}

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

// Tracker aggregates the readiness of named startup components (HTTP server,
// model loader, ...). It is ready while at least one component is registered
// and every registered component has reported ready. Registering a new
// component makes it not ready again until that component is marked.
type Tracker struct {
	mu         sync.RWMutex
	components map[string]*component
	// readyChan is closed while the tracker is ready and replaced when a
	// late component is registered.
	readyChan chan struct{}
	logger    *zap.Logger
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		components: make(map[string]*component),
		readyChan:  make(chan struct{}),
		logger:     logger,
	}
}

// AddComponent registers a component and returns the function that marks it
// ready. Registering the same name twice returns a marker for the existing
// component.
func (t *Tracker) AddComponent(name string) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.components[name]; !exists {
		t.components[name] = &component{
			name:      name,
			startedAt: time.Now(),
		}
		if isClosed(t.readyChan) {
			t.readyChan = make(chan struct{})
			t.logger.Info("Component registered after startup, tracker is not ready", zap.String("component", name))
		}
	}

	return func() { t.markReady(name) }
}

func (t *Tracker) markReady(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	comp, exists := t.components[name]
	if !exists || comp.ready {
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()

	t.logger.Info("Component is ready", zap.String("component", name))

	if !t.readyLocked() || isClosed(t.readyChan) {
		return
	}
	close(t.readyChan)
	t.logger.Info("All components are ready",
		zap.Int("component_count", len(t.components)),
	)
}

// readyLocked reports readiness from the component map. t.mu must be held.
func (t *Tracker) readyLocked() bool {
	if len(t.components) == 0 {
		return false
	}
	for _, c := range t.components {
		if !c.ready {
			return false
		}
	}
	return true
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (t *Tracker) IsReady() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.readyLocked()
}

func (t *Tracker) GetStatus() TrackerStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	status := TrackerStatus{
		Ready:      t.readyLocked(),
		Components: make([]ComponentStatus, 0, len(t.components)),
	}

	for _, comp := range t.components {
		if status.Ready && comp.readyAt.After(status.ReadyAt) {
			status.ReadyAt = comp.readyAt
		}
		status.Components = append(status.Components, ComponentStatus{
			Name:      comp.name,
			Ready:     comp.ready,
			StartedAt: comp.startedAt,
			ReadyAt:   comp.readyAt,
		})
	}

	sort.Slice(status.Components, func(i, j int) bool {
		return status.Components[i].Name < status.Components[j].Name
	})

	return status
}

// WaitReady blocks until all components are ready or ctx is cancelled.
func (t *Tracker) WaitReady(ctx context.Context) error {
	for {
		t.mu.RLock()
		ready, ch := t.readyLocked(), t.readyChan
		t.mu.RUnlock()
		if ready {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *Tracker) Predicate() Predicate {
	return FromFunc(t.IsReady)
}
