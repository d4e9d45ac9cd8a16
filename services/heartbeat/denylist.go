package heartbeat

import (
	"strings"

	"heartbeat-controlplane/services/team"
)

// Denylist is the set view of a team's blacklist entries.
type Denylist struct {
	ips       map[string]struct{}
	countries map[string]struct{}
	devices   map[string]struct{}
}

func NewDenylist(entries []team.BlacklistEntry) *Denylist {
	d := &Denylist{
		ips:       make(map[string]struct{}),
		countries: make(map[string]struct{}),
		devices:   make(map[string]struct{}),
	}
	for _, e := range entries {
		switch e.Type {
		case team.BlacklistIPAddress:
			d.ips[e.Value] = struct{}{}
		case team.BlacklistCountry:
			d.countries[strings.ToUpper(strings.TrimSpace(e.Value))] = struct{}{}
		case team.BlacklistDeviceIdentifier:
			d.devices[e.Value] = struct{}{}
		}
	}
	return d
}

func (d *Denylist) HasIP(ip string) bool {
	if ip == "" {
		return false
	}
	_, ok := d.ips[ip]
	return ok
}

// HasCountries reports whether any COUNTRY entry exists; without one the
// geo lookup is skipped entirely.
func (d *Denylist) HasCountries() bool {
	return len(d.countries) > 0
}

// HasCountry matches an alpha-3 code.
func (d *Denylist) HasCountry(alpha3 string) bool {
	if alpha3 == "" {
		return false
	}
	_, ok := d.countries[strings.ToUpper(alpha3)]
	return ok
}

func (d *Denylist) HasDevice(deviceIdentifier string) bool {
	if deviceIdentifier == "" {
		return false
	}
	_, ok := d.devices[deviceIdentifier]
	return ok
}
