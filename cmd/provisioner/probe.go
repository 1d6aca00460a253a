// cmd/provisioner/probe.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/consume"
	"github.com/tamzrod/reader-provisioner/internal/distribute"
	"github.com/tamzrod/reader-provisioner/internal/header"
	"github.com/tamzrod/reader-provisioner/internal/logger"
	"github.com/tamzrod/reader-provisioner/internal/monitor"
)

// runProbe boots a simulated reader from a generated header: it resolves
// its identity the way firmware does and optionally reports a heartbeat.
func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	heartbeat := fs.Bool("heartbeat", false, "connect to the broker, apply the retained config and publish one heartbeat")
	timeout := fs.Duration("timeout", 5*time.Second, "server and broker timeout")
	configTopic := fs.String("config-topic", config.DefaultTopicConfig, "config topic base")
	healthTopic := fs.String("health-topic", config.DefaultTopicHealth, "health topic base")
	verbose := fs.Bool("v", false, "debug logging")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: provisioner probe <reader-header.h> [-heartbeat] [-timeout D]")
	}

	data, err := os.ReadFile(pos[0])
	if err != nil {
		return err
	}
	doc, err := header.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", pos[0], err)
	}
	if missing := doc.Missing(); len(missing) > 0 {
		return fmt.Errorf("%s: missing fields %v", pos[0], missing)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logg, err := logger.New("development", level)
	if err != nil {
		return err
	}
	defer logg.Sync()

	rec := doc.Record
	if doc.Kind == header.KindMain && doc.Topics.Config != "" {
		*configTopic = doc.Topics.Config
		*healthTopic = doc.Topics.Health
	}

	fmt.Printf("compiled: %s\n", rec.Identity())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res := consume.NewResolver(rec, nil, logg)
	id, src, rerr := res.Resolve(ctx)
	if rerr != nil {
		fmt.Printf("server:   unavailable (%v)\n", rerr)
	}
	fmt.Printf("active:   %s (source %s)\n", id, src)

	if !*heartbeat {
		return nil
	}

	// ------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------

	broker, err := distribute.Connect(distribute.BrokerConfig{
		URL:            "tcp://" + net.JoinHostPort(rec.MQTTServer, strconv.Itoa(rec.MQTTPort)),
		ClientIDPrefix: "rfid-probe",
		Timeout:        *timeout,
	}, logg)
	if err != nil {
		return err
	}
	defer broker.Close()

	retained := make(chan []byte, 1)
	topic := distribute.ConfigTopic(*configTopic, rec.Index)
	if err := broker.Subscribe(topic, distribute.QoS, func(_ string, payload []byte) {
		select {
		case retained <- payload:
		default:
		}
	}); err != nil {
		return err
	}

	select {
	case payload := <-retained:
		id, src, err = res.Apply(payload)
		if err != nil {
			fmt.Printf("mqtt:     ignored config message (%v)\n", err)
		}
		fmt.Printf("active:   %s (source %s)\n", id, src)
	case <-time.After(time.Second):
		fmt.Printf("mqtt:     no retained config on %s\n", topic)
	}

	hb, err := json.Marshal(monitor.Heartbeat{ReaderID: id.ReaderID, Portal: id.Portal})
	if err != nil {
		return err
	}
	htopic := distribute.HealthTopic(*healthTopic, rec.Index)
	if err := broker.Publish(htopic, distribute.QoS, false, hb); err != nil {
		return err
	}
	fmt.Printf("heartbeat published to %s: %s\n", htopic, hb)
	return nil
}
