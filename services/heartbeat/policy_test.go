package heartbeat

import (
	"errors"
	"testing"
	"time"

	"heartbeat-controlplane/services/license"
	"heartbeat-controlplane/services/team"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestDenylist(t *testing.T) {
	d := NewDenylist([]team.BlacklistEntry{
		{Type: team.BlacklistIPAddress, Value: "10.0.0.1"},
		{Type: team.BlacklistCountry, Value: " fin "},
		{Type: team.BlacklistDeviceIdentifier, Value: "dev-1"},
		{Type: "UNKNOWN", Value: "ignored"},
	})

	require.True(t, d.HasIP("10.0.0.1"))
	require.False(t, d.HasIP("10.0.0.2"))
	require.False(t, d.HasIP(""))

	require.True(t, d.HasCountries())
	require.True(t, d.HasCountry("FIN"))
	require.True(t, d.HasCountry("fin"))
	require.False(t, d.HasCountry("SWE"))
	require.False(t, d.HasCountry(""))

	require.True(t, d.HasDevice("dev-1"))
	require.False(t, d.HasDevice("DEV-1"))
	require.False(t, d.HasDevice("ignored"))

	require.False(t, NewDenylist(nil).HasCountries())
}

func TestScopeAllows(t *testing.T) {
	ids := []string{"a", "b"}

	tests := []struct {
		name       string
		associated []string
		strict     bool
		supplied   string
		want       bool
	}{
		{"no association", nil, true, "", true},
		{"no association with id", nil, false, "x", true},
		{"strict absent", ids, true, "", false},
		{"lenient absent", ids, false, "", true},
		{"strict match", ids, true, "b", true},
		{"lenient match", ids, false, "a", true},
		{"strict mismatch", ids, true, "x", false},
		{"lenient mismatch", ids, false, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ScopeAllows(tt.associated, tt.strict, tt.supplied))
		})
	}
}

func TestEvaluateExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	t.Run("none", func(t *testing.T) {
		exp, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationNone}, now)
		require.NoError(t, err)
		require.Equal(t, ExpirationStateNone, exp.State)
		require.False(t, exp.Expired)
		require.Nil(t, exp.ActivateAt)
	})

	t.Run("date in future", func(t *testing.T) {
		exp, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDate, ExpirationDate: &future}, now)
		require.NoError(t, err)
		require.False(t, exp.Expired)
	})

	t.Run("date equal to now passes", func(t *testing.T) {
		exp, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDate, ExpirationDate: &now}, now)
		require.NoError(t, err)
		require.False(t, exp.Expired)
	})

	t.Run("date in past", func(t *testing.T) {
		exp, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDate, ExpirationDate: &past}, now)
		require.NoError(t, err)
		require.Equal(t, ExpirationStateFixed, exp.State)
		require.Equal(t, "date", exp.State.String())
		require.True(t, exp.Expired)
	})

	t.Run("date without value", func(t *testing.T) {
		_, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDate}, now)
		require.True(t, errors.Is(err, ErrInvalidExpiration))
	})

	t.Run("duration unstarted", func(t *testing.T) {
		exp, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDuration, ExpirationDays: intPtr(30)}, now)
		require.NoError(t, err)
		require.Equal(t, ExpirationStateUnstarted, exp.State)
		require.Equal(t, "duration_unstarted", exp.State.String())
		require.False(t, exp.Expired)
		require.NotNil(t, exp.ActivateAt)
		require.Equal(t, now.Add(30*24*time.Hour), *exp.ActivateAt)
	})

	t.Run("duration started", func(t *testing.T) {
		exp, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDuration, ExpirationDays: intPtr(30), ExpirationDate: &past}, now)
		require.NoError(t, err)
		require.Equal(t, ExpirationStateStarted, exp.State)
		require.Equal(t, "duration_started", exp.State.String())
		require.True(t, exp.Expired)
		require.Nil(t, exp.ActivateAt)
	})

	t.Run("duration without days", func(t *testing.T) {
		_, err := EvaluateExpiration(&license.License{ExpirationType: license.ExpirationDuration}, now)
		require.ErrorIs(t, err, ErrInvalidExpiration)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := EvaluateExpiration(&license.License{ExpirationType: "FOREVER"}, now)
		require.ErrorIs(t, err, ErrInvalidExpiration)
	})
}

func TestIPLimitReached(t *testing.T) {
	seen := SeenIPs([]license.RequestLog{
		{IPAddress: strPtr("1.1.1.1")},
		{IPAddress: strPtr("1.1.1.1")},
		{IPAddress: strPtr("2.2.2.2")},
		{IPAddress: nil},
	})
	require.Len(t, seen, 2)

	require.False(t, IPLimitReached(nil, seen, "3.3.3.3"))
	require.False(t, IPLimitReached(intPtr(0), seen, "3.3.3.3"))
	require.False(t, IPLimitReached(intPtr(2), seen, "1.1.1.1"))
	require.True(t, IPLimitReached(intPtr(2), seen, "3.3.3.3"))
	require.False(t, IPLimitReached(intPtr(3), seen, "3.3.3.3"))
	require.True(t, IPLimitReached(intPtr(2), seen, ""))
}

func TestSeatLimitReached(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	timeout := 60 * time.Minute
	heartbeats := []license.Heartbeat{
		{DeviceIdentifier: "a", LastBeatAt: now.Add(-10 * time.Minute)},
		{DeviceIdentifier: "b", LastBeatAt: now.Add(-59 * time.Minute)},
		{DeviceIdentifier: "stale", LastBeatAt: now.Add(-60 * time.Minute)},
	}

	require.Len(t, ActiveSeats(heartbeats, now, timeout), 2)

	require.False(t, SeatLimitReached(nil, heartbeats, "c", now, timeout))
	require.False(t, SeatLimitReached(intPtr(2), heartbeats, "a", now, timeout))
	require.True(t, SeatLimitReached(intPtr(2), heartbeats, "c", now, timeout))
	require.True(t, SeatLimitReached(intPtr(2), heartbeats, "stale", now, timeout))
	require.False(t, SeatLimitReached(intPtr(3), heartbeats, "c", now, timeout))
}

func TestDecodeRequest(t *testing.T) {
	v := newValidator()

	req, msg := decodeRequest(v, []byte(`{"licenseKey":"ABCDE-12345-FGHIJ-67890-KLMNO","deviceIdentifier":"dev"}`))
	require.Empty(t, msg)
	require.Equal(t, "dev", req.DeviceIdentifier)

	_, msg = decodeRequest(v, []byte(`{`))
	require.Equal(t, "Invalid request body", msg)

	_, msg = decodeRequest(v, []byte(`{"deviceIdentifier":"dev"}`))
	require.Equal(t, "licenseKey is required", msg)

	_, msg = decodeRequest(v, []byte(`{"licenseKey":"abcde-12345-FGHIJ-67890-KLMNO","deviceIdentifier":"dev"}`))
	require.Equal(t, "licenseKey must be in the format XXXXX-XXXXX-XXXXX-XXXXX-XXXXX", msg)

	_, msg = decodeRequest(v, []byte(`{"licenseKey":"ABCDE-12345-FGHIJ-67890-KLMNO","deviceIdentifier":"dev","customerId":"nope"}`))
	require.Equal(t, "customerId must be a valid UUID", msg)
}
