// internal/consume/resolver.go
package consume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/distribute"
	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/record"
)

// Source says where the active identity came from.
type Source string

const (
	SourceCompiled Source = "compiled"
	SourceServer   Source = "server"
	SourceMQTT     Source = "mqtt"
)

// maxBody bounds the reader-config response. Readers have a few KB of heap.
const maxBody = 1024

// Resolver holds a reader's active identity the way firmware does:
// compiled values first, replaced by the server or a retained MQTT message.
type Resolver struct {
	compiled record.Record
	client   *http.Client
	log      *logger.Logger

	mu     sync.Mutex
	active record.Identity
	source Source
}

// NewResolver starts from the identity compiled into rec.
// A nil client gets a 5s timeout client.
func NewResolver(rec record.Record, client *http.Client, logg *logger.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{
		compiled: rec,
		client:   client,
		log:      logg.With("service", "Resolver", "r_index", rec.Index),
		active:   rec.Identity(),
		source:   SourceCompiled,
	}
}

// ConfigURL is the endpoint a reader asks for its identity.
func ConfigURL(serverBase string, index int) string {
	return strings.TrimRight(serverBase, "/") + "/api/reader-config/" + strconv.Itoa(index)
}

// Resolve asks the server for the identity of the compiled index.
// A 200 response with non-empty readerID and portal replaces the active identity.
// Anything else keeps it; the returned error says why.
func (r *Resolver) Resolve(ctx context.Context) (record.Identity, Source, error) {
	msg, err := r.fetch(ctx)
	if err != nil {
		r.log.Warn("server identity unavailable; keeping active identity", "error", err)
		id, src := r.Current()
		return id, src, err
	}

	id := r.set(msg, SourceServer)
	return id, SourceServer, nil
}

// Apply handles a retained message on the reader's config topic.
// An empty payload reverts to the compiled identity.
func (r *Resolver) Apply(payload []byte) (record.Identity, Source, error) {
	if len(payload) == 0 {
		r.mu.Lock()
		r.active = r.compiled.Identity()
		r.source = SourceCompiled
		r.mu.Unlock()
		r.log.Info("retained config cleared; reverted to compiled identity")
		return r.compiled.Identity(), SourceCompiled, nil
	}

	var msg distribute.ConfigMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		id, src := r.Current()
		return id, src, fmt.Errorf("consume: config payload: %w", err)
	}
	if !usable(msg) {
		id, src := r.Current()
		return id, src, errors.New("consume: config payload lacks readerID or portal")
	}

	return r.set(msg, SourceMQTT), SourceMQTT, nil
}

// Current returns the active identity and where it came from.
func (r *Resolver) Current() (record.Identity, Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.source
}

// Record returns the compiled record carrying the active identity.
func (r *Resolver) Record() record.Record {
	id, _ := r.Current()
	rec := r.compiled
	rec.ReaderID = id.ReaderID
	rec.Portal = id.Portal
	return rec
}

func (r *Resolver) fetch(ctx context.Context) (distribute.ConfigMessage, error) {
	var msg distribute.ConfigMessage

	url := ConfigURL(r.compiled.ServerBase, r.compiled.Index)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return msg, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return msg, fmt.Errorf("consume: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return msg, fmt.Errorf("consume: GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return msg, fmt.Errorf("consume: read body: %w", err)
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("consume: decode body: %w", err)
	}
	if !usable(msg) {
		return msg, errors.New("consume: server response lacks readerID or portal")
	}
	return msg, nil
}

func (r *Resolver) set(msg distribute.ConfigMessage, src Source) record.Identity {
	id := record.Identity{Index: r.compiled.Index, ReaderID: msg.ReaderID, Portal: msg.Portal}

	r.mu.Lock()
	r.active = id
	r.source = src
	r.mu.Unlock()

	r.log.Info("identity applied", "source", string(src), "reader_id", id.ReaderID, "portal", id.Portal)
	return id
}

func usable(m distribute.ConfigMessage) bool {
	return strings.TrimSpace(m.ReaderID) != "" && strings.TrimSpace(m.Portal) != ""
}
