package heartbeat

import (
	"time"

	"heartbeat-controlplane/services/license"
)

// SeenIPs returns the distinct non-empty IPs of the request history.
func SeenIPs(logs []license.RequestLog) map[string]struct{} {
	seen := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		if l.IPAddress != nil && *l.IPAddress != "" {
			seen[*l.IPAddress] = struct{}{}
		}
	}
	return seen
}

// IPLimitReached reports whether ip would exceed the distinct IP cap. A nil
// or non-positive limit is unlimited and a previously seen IP always passes.
func IPLimitReached(limit *int, seen map[string]struct{}, ip string) bool {
	if limit == nil || *limit <= 0 {
		return false
	}
	if _, ok := seen[ip]; ok && ip != "" {
		return false
	}
	return len(seen) >= *limit
}

// ActiveSeats returns the heartbeats with lastBeatAt strictly after now-timeout.
func ActiveSeats(heartbeats []license.Heartbeat, now time.Time, timeout time.Duration) []license.Heartbeat {
	window := now.Add(-timeout)
	active := make([]license.Heartbeat, 0, len(heartbeats))
	for _, hb := range heartbeats {
		if hb.LastBeatAt.After(window) {
			active = append(active, hb)
		}
	}
	return active
}

// SeatLimitReached reports whether device would exceed the concurrent seat
// cap. A device that already holds an active seat may always renew.
func SeatLimitReached(seats *int, heartbeats []license.Heartbeat, device string, now time.Time, timeout time.Duration) bool {
	if seats == nil || *seats <= 0 {
		return false
	}
	active := ActiveSeats(heartbeats, now, timeout)
	for _, hb := range active {
		if hb.DeviceIdentifier == device {
			return false
		}
	}
	return len(active) >= *seats
}
