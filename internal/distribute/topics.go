// internal/distribute/topics.go
package distribute

import (
	"strconv"
	"strings"
)

// QoS used for config pushes and heartbeat subscriptions.
const QoS byte = 1

// ConfigTopic is where the identity of reader index is retained: <base>/<index>.
func ConfigTopic(base string, index int) string {
	return base + "/" + strconv.Itoa(index)
}

// HealthTopic is where reader index publishes heartbeats: <base>/<index>.
func HealthTopic(base string, index int) string {
	return base + "/" + strconv.Itoa(index)
}

// Wildcard matches every reader under base.
func Wildcard(base string) string {
	return base + "/+"
}

// ParseIndexTopic extracts the reader index from <base>/<index>.
func ParseIndexTopic(base, topic string) (int, bool) {
	rest, ok := strings.CutPrefix(topic, base+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
