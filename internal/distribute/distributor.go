// internal/distribute/distributor.go
package distribute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/record"
)

// ConfigMessage is the retained identity payload a reader applies at runtime.
// Field names match the reader-config HTTP response.
type ConfigMessage struct {
	ReaderID string `json:"readerID"`
	Portal   string `json:"portal"`
}

// Publisher is the subset of Broker the distributor needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Distributor pushes registry assignments to readers as retained messages.
type Distributor struct {
	pub  Publisher
	base string
	log  *logger.Logger
}

func New(pub Publisher, configTopic string, logg *logger.Logger) (*Distributor, error) {
	if pub == nil {
		return nil, errors.New("distribute: publisher required")
	}
	if configTopic == "" {
		return nil, errors.New("distribute: config topic required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Distributor{pub: pub, base: configTopic, log: logg.With("service", "Distributor")}, nil
}

// Push retains the identity for its index.
func (d *Distributor) Push(id record.Identity) error {
	payload, err := json.Marshal(ConfigMessage{ReaderID: id.ReaderID, Portal: id.Portal})
	if err != nil {
		return err
	}
	topic := ConfigTopic(d.base, id.Index)
	if err := d.pub.Publish(topic, QoS, true, payload); err != nil {
		return fmt.Errorf("distribute: push %s: %w", topic, err)
	}
	d.log.Info("reader config pushed", "topic", topic, "reader_id", id.ReaderID, "portal", id.Portal)
	return nil
}

// Clear removes the retained identity of index. Readers revert to compiled values.
func (d *Distributor) Clear(index int) error {
	topic := ConfigTopic(d.base, index)
	if err := d.pub.Publish(topic, QoS, true, nil); err != nil {
		return fmt.Errorf("distribute: clear %s: %w", topic, err)
	}
	d.log.Info("reader config cleared", "topic", topic)
	return nil
}

// PublishAll pushes every identity. Failures do not stop the rest.
func (d *Distributor) PublishAll(ctx context.Context, ids []record.Identity) error {
	var errs []string
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.Push(id); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// ReaderAssigned pushes a registry assignment.
func (d *Distributor) ReaderAssigned(_ context.Context, id record.Identity) error {
	return d.Push(id)
}

// ReaderRemoved clears the retained assignment of index.
func (d *Distributor) ReaderRemoved(_ context.Context, index int) error {
	return d.Clear(index)
}
