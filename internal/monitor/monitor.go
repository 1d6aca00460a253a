// internal/monitor/monitor.go
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/distribute"
	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/record"
	"github.com/tamzrod/reader-provisioner/internal/status"
)

// ErrIndexOutOfRange is returned for heartbeats whose index has no status block.
var ErrIndexOutOfRange = errors.New("monitor: reader index out of range")

// Monitor tracks reader heartbeats against the registry.
type Monitor struct {
	cfg      Config
	resolver Resolver
	sink     StatusSink
	log      *logger.Logger

	mu      sync.Mutex
	readers map[int]*reader

	rangeWarn sync.Once
}

// New creates a monitor. sink may be nil when status export is disabled.
func New(cfg Config, resolver Resolver, sink StatusSink, logg *logger.Logger) (*Monitor, error) {
	if cfg.HealthTopic == "" {
		return nil, errors.New("monitor: health topic required")
	}
	if cfg.Stale <= 0 {
		return nil, errors.New("monitor: stale window must be > 0")
	}
	if resolver == nil {
		return nil, errors.New("monitor: resolver required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logg == nil {
		logg = logger.Nop()
	}

	return &Monitor{
		cfg:      cfg,
		resolver: resolver,
		sink:     sink,
		log:      logg.With("service", "Monitor"),
		readers:  make(map[int]*reader),
	}, nil
}

// ---- REGISTRY SIDE ----

// Track registers readers known to the registry. They report Unknown until seen.
func (m *Monitor) Track(ids []record.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		m.expectLocked(id, true)
	}
}

// ReaderAssigned updates the expected identity after a registry change.
func (m *Monitor) ReaderAssigned(_ context.Context, id record.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expectLocked(id, true)
	return nil
}

// ReaderRemoved marks index as unregistered. It reports Disabled whatever
// identity it sends, and is dropped once its heartbeats go stale.
func (m *Monitor) ReaderRemoved(_ context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expectLocked(record.Default(index), false)
	return nil
}

func (m *Monitor) expectLocked(id record.Identity, registered bool) {
	r := m.readers[id.Index]
	if r == nil {
		r = &reader{lastHealth: status.HealthUnknown}
		m.readers[id.Index] = r
	}
	r.expected = id
	r.registered = registered
	r.mismatch = registered && r.seen && !sameAssignment(r.reported, id)
}

// ---- HEARTBEAT SIDE ----

// Start subscribes to every reader's health topic.
func (m *Monitor) Start(sub Subscriber) error {
	return sub.Subscribe(distribute.Wildcard(m.cfg.HealthTopic), distribute.QoS, m.HandleMessage)
}

// HandleMessage is the MQTT handler for <health>/<rIndex>.
func (m *Monitor) HandleMessage(topic string, payload []byte) {
	index, ok := distribute.ParseIndexTopic(m.cfg.HealthTopic, topic)
	if !ok {
		m.log.Warn("heartbeat on unexpected topic", "topic", topic)
		return
	}
	if len(payload) == 0 {
		return
	}

	var hb Heartbeat
	if err := json.Unmarshal(payload, &hb); err != nil {
		m.log.Warn("heartbeat payload rejected", "topic", topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := m.Observe(ctx, index, hb)
	switch {
	case errors.Is(err, ErrIndexOutOfRange):
		m.rangeWarn.Do(func() {
			m.log.Warn("ignoring heartbeats outside the reader index range",
				"topic", topic,
				"max_index", status.MaxReaderIndex,
			)
		})
	case err != nil:
		m.log.Error("heartbeat not recorded", "r_index", index, "error", err)
	}
}

// Observe records a heartbeat from reader index.
// Untracked indices are resolved through the registry first.
func (m *Monitor) Observe(ctx context.Context, index int, hb Heartbeat) error {
	if index < 0 || index > status.MaxReaderIndex {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	hb.ReaderID = strings.ToUpper(strings.TrimSpace(hb.ReaderID))
	hb.Portal = strings.TrimSpace(hb.Portal)

	m.mu.Lock()
	_, tracked := m.readers[index]
	m.mu.Unlock()

	if !tracked {
		id, found, err := m.resolver.Resolve(ctx, index)
		if err != nil {
			return err
		}
		m.mu.Lock()
		if _, raced := m.readers[index]; !raced {
			m.expectLocked(id, found)
		}
		m.mu.Unlock()
	}

	now := m.cfg.Now()

	m.mu.Lock()
	r := m.readers[index]
	r.seen = true
	r.lastSeen = now
	r.reported = hb
	r.mismatch = r.registered && !sameAssignment(hb, r.expected)
	if r.mismatch {
		m.log.Warn("reader reports unexpected identity",
			"r_index", index,
			"reported", hb.ReaderID+"/"+hb.Portal,
			"expected", r.expected.Assignment(),
		)
	}
	snap := m.snapshotLocked(r, now)
	id := r.expected.ReaderID
	m.mu.Unlock()

	return m.deliver(index, id, snap)
}

// ---- CLOCK SIDE ----

// Run ticks until ctx is done. The first tick runs immediately and
// asserts every tracked reader block.
func (m *Monitor) Run(ctx context.Context) error {
	m.Tick()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick re-evaluates every reader and delivers its snapshot.
// Unregistered readers get a final Disabled snapshot and are dropped once
// they have no fresh heartbeat.
func (m *Monitor) Tick() {
	now := m.cfg.Now()

	type delivery struct {
		index    int
		readerID string
		snap     status.Snapshot
	}

	m.mu.Lock()
	out := make([]delivery, 0, len(m.readers))
	for idx, r := range m.readers {
		out = append(out, delivery{idx, r.expected.ReaderID, m.snapshotLocked(r, now)})
		if !r.registered && (!r.seen || now.Sub(r.lastSeen) > m.cfg.Stale) {
			delete(m.readers, idx)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	for _, d := range out {
		if err := m.deliver(d.index, d.readerID, d.snap); err != nil {
			m.log.Error("status write failed", "r_index", d.index, "error", err)
		}
	}
}

// Snapshots returns the state of every tracked reader ordered by index.
func (m *Monitor) Snapshots() []ReaderState {
	now := m.cfg.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ReaderState, 0, len(m.readers))
	for idx, r := range m.readers {
		snap := evaluate(r, now, m.cfg.Stale)
		st := ReaderState{
			Index:                 idx,
			Expected:              r.expected,
			Registered:            r.registered,
			Health:                status.HealthName(snap.Health),
			HealthCode:            snap.Health,
			SecondsSinceHeartbeat: snap.SecondsSinceHeartbeat,
			Snapshot:              snap,
		}
		if r.seen {
			hb := r.reported
			seen := r.lastSeen
			st.Reported = &hb
			st.LastSeen = &seen
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ---- helpers ----

// snapshotLocked evaluates r and logs health transitions.
func (m *Monitor) snapshotLocked(r *reader, now time.Time) status.Snapshot {
	snap := evaluate(r, now, m.cfg.Stale)
	if snap.Health != r.lastHealth {
		m.log.Info("reader health changed",
			"r_index", r.expected.Index,
			"from", status.HealthName(r.lastHealth),
			"to", status.HealthName(snap.Health),
		)
		r.lastHealth = snap.Health
	}
	return snap
}

func (m *Monitor) deliver(index int, readerID string, s status.Snapshot) error {
	if m.sink == nil {
		return nil
	}
	return m.sink.WriteStatus(index, readerID, s)
}

// evaluate derives the status snapshot of r at now. Pure.
// A reader without a registry row is Disabled whatever it reports.
func evaluate(r *reader, now time.Time, stale time.Duration) status.Snapshot {
	var s status.Snapshot

	if !r.seen {
		s.SecondsSinceHeartbeat = status.SecondsMax
		if r.registered {
			s.Health = status.HealthUnknown
		} else {
			s.Health = status.HealthDisabled
		}
		return s
	}

	age := now.Sub(r.lastSeen)
	if age < 0 {
		age = 0
	}
	// HARD INVARIANT: seconds MUST NOT wrap
	secs := int64(age / time.Second)
	if secs > status.SecondsMax {
		secs = status.SecondsMax
	}
	s.SecondsSinceHeartbeat = uint16(secs)

	if r.mismatch {
		s.Mismatch = 1
	}

	switch {
	case !r.registered:
		s.Health = status.HealthDisabled
	case age > stale:
		s.Health = status.HealthStale
	case r.mismatch:
		s.Health = status.HealthMismatch
	default:
		s.Health = status.HealthOK
	}
	return s
}

func sameAssignment(hb Heartbeat, id record.Identity) bool {
	return hb.ReaderID == id.ReaderID && hb.Portal == id.Portal
}
