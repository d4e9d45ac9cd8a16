package heartbeat

import (
	"context"
	"time"

	"heartbeat-controlplane/pkg/rediskey"
	"heartbeat-controlplane/services/license"
	"heartbeat-controlplane/services/team"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// evaluation carries the state one heartbeat accumulates while moving
// through the guard chain.
type evaluation struct {
	input      Input
	req        Request
	now        time.Time
	team       *team.Team
	denylist   *Denylist
	license    *license.License
	country    string
	expiration Expiration
	log        *zap.Logger
}

type verdict struct {
	code   license.RequestStatus
	detail string
}

var pass = verdict{}

func deny(code license.RequestStatus) verdict { return verdict{code: code} }

func (v verdict) passed() bool { return v.code == "" }

// guard is one ordered step of the pipeline. It either lets the heartbeat
// continue, stops it with a terminal code, or fails with an error.
type guard struct {
	name  string
	check func(ctx context.Context, ev *evaluation) (verdict, error)
}

func (s *Service) chain() []guard {
	return []guard{
		{"team_id", s.checkTeamID},
		{"body", s.checkBody},
		{"rate_limit", s.checkRateLimit},
		{"team", s.loadTeam},
		{"license", s.loadLicense},
		{"ip_denylist", s.checkIPDenylist},
		{"country_denylist", s.checkCountryDenylist},
		{"device_denylist", s.checkDeviceDenylist},
		{"customer_scope", s.checkCustomerScope},
		{"product_scope", s.checkProductScope},
		{"suspension", s.checkSuspension},
		{"expiration", s.checkExpiration},
		{"ip_quota", s.checkIPQuota},
		{"seat_quota", s.checkSeatQuota},
	}
}

func (s *Service) checkTeamID(_ context.Context, ev *evaluation) (verdict, error) {
	if _, err := uuid.Parse(ev.input.TeamID); err != nil || len(ev.input.TeamID) != 36 {
		return verdict{code: license.StatusBadRequest, detail: detailInvalidTeamID}, nil
	}
	return pass, nil
}

func (s *Service) checkBody(_ context.Context, ev *evaluation) (verdict, error) {
	req, msg := decodeRequest(s.validate, ev.input.Body)
	if msg != "" {
		return verdict{code: license.StatusBadRequest, detail: msg}, nil
	}
	ev.req = req
	ev.log = ev.log.With(zap.String("device_identifier", req.DeviceIdentifier))
	return pass, nil
}

// checkRateLimit fails open when the limiter store is unavailable.
func (s *Service) checkRateLimit(ctx context.Context, ev *evaluation) (verdict, error) {
	if ev.input.ClientIP == "" || s.opts.RateLimit <= 0 {
		return pass, nil
	}

	limited, err := s.limiter.IsLimited(ctx, rediskey.BuildHeartbeatRateKey(ev.input.ClientIP), s.opts.RateLimit, s.opts.RateWindow)
	if err != nil {
		ev.log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return pass, nil
	}
	if limited {
		return deny(license.StatusRateLimit), nil
	}
	return pass, nil
}

func (s *Service) loadTeam(ctx context.Context, ev *evaluation) (verdict, error) {
	t, err := s.teams.Load(ctx, ev.input.TeamID)
	if err != nil {
		return pass, err
	}
	if t == nil || t.Settings == nil {
		return deny(license.StatusTeamNotFound), nil
	}
	ev.team = t
	ev.denylist = NewDenylist(t.Blacklist)
	return pass, nil
}

func (s *Service) loadLicense(ctx context.Context, ev *evaluation) (verdict, error) {
	token := s.lookup.Token(ev.req.LicenseKey, ev.team.ID)
	lic, err := s.licenses.FindByLookup(ctx, ev.team.ID, token, ev.now.Add(-s.opts.RequestLogWindow))
	if err != nil {
		return pass, err
	}
	if lic == nil {
		ev.log.Debug("license not found", zap.String("lookup_prefix", token[:8]))
		return deny(license.StatusLicenseNotFound), nil
	}
	ev.license = lic
	ev.log = ev.log.With(zap.String("license_id", lic.ID))
	return pass, nil
}

func (s *Service) checkIPDenylist(_ context.Context, ev *evaluation) (verdict, error) {
	if ev.denylist.HasIP(ev.input.ClientIP) {
		return deny(license.StatusIPBlacklisted), nil
	}
	return pass, nil
}

// checkCountryDenylist fails open: lookup errors and unknown countries skip
// the check.
func (s *Service) checkCountryDenylist(ctx context.Context, ev *evaluation) (verdict, error) {
	if !ev.denylist.HasCountries() || ev.input.ClientIP == "" {
		return pass, nil
	}

	country, err := s.geo.Country(ctx, ev.input.ClientIP)
	if err != nil {
		geoLookupFailures.Inc()
		ev.log.Warn("geo lookup failed, skipping country check", zap.Error(err))
		return pass, nil
	}
	ev.country = country

	if ev.denylist.HasCountry(country) {
		return deny(license.StatusCountryBlacklisted), nil
	}
	return pass, nil
}

func (s *Service) checkDeviceDenylist(_ context.Context, ev *evaluation) (verdict, error) {
	if ev.denylist.HasDevice(ev.req.DeviceIdentifier) {
		return deny(license.StatusDeviceIdentifierBlacklisted), nil
	}
	return pass, nil
}

func (s *Service) checkCustomerScope(_ context.Context, ev *evaluation) (verdict, error) {
	if !ScopeAllows(ev.license.CustomerIDs(), ev.team.Settings.StrictCustomers, ev.req.CustomerID) {
		return deny(license.StatusCustomerNotFound), nil
	}
	return pass, nil
}

func (s *Service) checkProductScope(_ context.Context, ev *evaluation) (verdict, error) {
	if !ScopeAllows(ev.license.ProductIDs(), ev.team.Settings.StrictProducts, ev.req.ProductID) {
		return deny(license.StatusProductNotFound), nil
	}
	return pass, nil
}

func (s *Service) checkSuspension(_ context.Context, ev *evaluation) (verdict, error) {
	if ev.license.Suspended {
		return deny(license.StatusLicenseSuspended), nil
	}
	return pass, nil
}

func (s *Service) checkExpiration(_ context.Context, ev *evaluation) (verdict, error) {
	exp, err := EvaluateExpiration(ev.license, ev.now)
	if err != nil {
		return pass, err
	}
	if exp.Expired {
		ev.log.Debug("license expired", zap.Stringer("expiration_state", exp.State))
		return deny(license.StatusLicenseExpired), nil
	}
	ev.expiration = exp
	return pass, nil
}

func (s *Service) checkIPQuota(_ context.Context, ev *evaluation) (verdict, error) {
	if IPLimitReached(ev.license.IPLimit, SeenIPs(ev.license.RequestLogs), ev.input.ClientIP) {
		return deny(license.StatusIPLimitReached), nil
	}
	return pass, nil
}

func (s *Service) checkSeatQuota(_ context.Context, ev *evaluation) (verdict, error) {
	if SeatLimitReached(ev.license.Seats, ev.license.Heartbeats, ev.req.DeviceIdentifier, ev.now, s.seatTimeout(ev.team)) {
		return deny(license.StatusMaximumConcurrentSeats), nil
	}
	return pass, nil
}

func (s *Service) seatTimeout(t *team.Team) time.Duration {
	return time.Duration(t.Settings.HeartbeatTimeoutMinutes(s.opts.DefaultTimeoutMinutes)) * time.Minute
}
