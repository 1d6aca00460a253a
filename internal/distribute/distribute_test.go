// internal/distribute/distribute_test.go
package distribute

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tamzrod/reader-provisioner/internal/record"
)

// ---- fake publisher ----

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	calls  []publishCall
	failOn string
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if topic == f.failOn {
		return errors.New("broker unavailable")
	}
	f.calls = append(f.calls, publishCall{topic, qos, retained, payload})
	return nil
}

// ---- tests ----

func TestPush_RetainedJSON(t *testing.T) {
	pub := &fakePublisher{}
	d, err := New(pub, "config", nil)
	if err != nil {
		t.Fatalf("New err=%v", err)
	}

	if err := d.Push(record.Identity{Index: 8, ReaderID: "CLUSTER1", Portal: "reader1"}); err != nil {
		t.Fatalf("Push err=%v", err)
	}

	c := pub.calls[0]
	if c.topic != "config/8" || c.qos != 1 || !c.retained {
		t.Fatalf("publish call: %+v", c)
	}
	var msg ConfigMessage
	if err := json.Unmarshal(c.payload, &msg); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if msg.ReaderID != "CLUSTER1" || msg.Portal != "reader1" {
		t.Fatalf("payload content: %+v", msg)
	}
	if !strings.Contains(string(c.payload), `"readerID"`) {
		t.Fatalf("payload must use readerID key: %s", c.payload)
	}
}

func TestClear_EmptyRetained(t *testing.T) {
	pub := &fakePublisher{}
	d, _ := New(pub, "config", nil)

	if err := d.Clear(3); err != nil {
		t.Fatalf("Clear err=%v", err)
	}
	c := pub.calls[0]
	if c.topic != "config/3" || !c.retained || len(c.payload) != 0 {
		t.Fatalf("clear must publish an empty retained payload: %+v", c)
	}
}

func TestPublishAll_ContinuesPastFailures(t *testing.T) {
	pub := &fakePublisher{failOn: "config/2"}
	d, _ := New(pub, "config", nil)

	err := d.PublishAll(context.Background(), []record.Identity{
		{Index: 1, ReaderID: "REGISTER", Portal: "portal1"},
		{Index: 2, ReaderID: "ENTEROUT", Portal: "portal2"},
		{Index: 8, ReaderID: "CLUSTER1", Portal: "reader1"},
	})
	if err == nil || !strings.Contains(err.Error(), "config/2") {
		t.Fatalf("expected error naming config/2, got %v", err)
	}
	if len(pub.calls) != 2 {
		t.Fatalf("expected 2 successful publishes, got %d", len(pub.calls))
	}
}

func TestNew_RequiresPublisherAndTopic(t *testing.T) {
	if _, err := New(nil, "config", nil); err == nil {
		t.Fatalf("expected error without publisher")
	}
	if _, err := New(&fakePublisher{}, "", nil); err == nil {
		t.Fatalf("expected error without topic")
	}
}

func TestParseIndexTopic(t *testing.T) {
	cases := []struct {
		topic string
		idx   int
		ok    bool
	}{
		{"health/8", 8, true},
		{"health/0", 0, true},
		{"health/-1", 0, false},
		{"health/abc", 0, false},
		{"health/8/extra", 0, false},
		{"healthz/8", 0, false},
		{"health/", 0, false},
	}
	for _, c := range cases {
		idx, ok := ParseIndexTopic("health", c.topic)
		if idx != c.idx || ok != c.ok {
			t.Fatalf("%s: got (%d,%v) want (%d,%v)", c.topic, idx, ok, c.idx, c.ok)
		}
	}
}

func TestClientID_Prefix(t *testing.T) {
	id := ClientID("rfid-system")
	if !strings.HasPrefix(id, "rfid-system-") || len(id) != len("rfid-system-")+8 {
		t.Fatalf("client id: got %q", id)
	}
}
