package live

import "sync"

// Notifier signals watchers that a table changed. Signals for one watcher
// coalesce until it reads them.
type Notifier struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{watchers: map[string]map[chan struct{}]struct{}{}}
}

// Watch returns a channel that fires after any of tables is published, and a
// cancel func that detaches it.
func (n *Notifier) Watch(tables ...string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	for _, t := range tables {
		set, ok := n.watchers[t]
		if !ok {
			set = map[chan struct{}]struct{}{}
			n.watchers[t] = set
		}
		set[ch] = struct{}{}
	}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for _, t := range tables {
				delete(n.watchers[t], ch)
				if len(n.watchers[t]) == 0 {
					delete(n.watchers, t)
				}
			}
		})
	}
}

// Publish marks tables as changed.
func (n *Notifier) Publish(tables ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, t := range tables {
		for ch := range n.watchers[t] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Watchers reports how many watchers are attached to table.
func (n *Notifier) Watchers(table string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.watchers[table])
}
