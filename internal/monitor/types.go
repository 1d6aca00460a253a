// internal/monitor/types.go
package monitor

import (
	"context"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/record"
	"github.com/tamzrod/reader-provisioner/internal/status"
)

// Heartbeat is the payload a reader publishes on <health>/<rIndex>.
type Heartbeat struct {
	ReaderID string `json:"readerID"`
	Portal   string `json:"portal"`
}

// Resolver returns the registry identity of a reader index.
type Resolver interface {
	Resolve(ctx context.Context, index int) (record.Identity, bool, error)
}

// StatusSink receives per-reader status snapshots.
type StatusSink interface {
	WriteStatus(index int, readerID string, s status.Snapshot) error
}

// Subscriber is the subset of the MQTT broker the monitor needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// Config is the immutable monitor configuration.
type Config struct {
	HealthTopic string
	Stale       time.Duration
	Interval    time.Duration    // tick period, defaults to 1s
	Now         func() time.Time // defaults to time.Now
}

// ReaderState is the externally visible state of one reader.
type ReaderState struct {
	Index                 int             `json:"r_index"`
	Expected              record.Identity `json:"expected"`
	Registered            bool            `json:"registered"`
	Reported              *Heartbeat      `json:"reported,omitempty"`
	LastSeen              *time.Time      `json:"last_seen,omitempty"`
	Health                string          `json:"health"`
	HealthCode            uint16          `json:"health_code"`
	SecondsSinceHeartbeat uint16          `json:"seconds_since_heartbeat"`
	Snapshot              status.Snapshot `json:"-"`
}

// reader is monitor-owned mutable state. Guarded by Monitor.mu.
type reader struct {
	expected   record.Identity
	registered bool

	seen     bool
	lastSeen time.Time
	reported Heartbeat
	mismatch bool

	lastHealth uint16
}
