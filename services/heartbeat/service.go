package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/geoip"
	"heartbeat-controlplane/pkg/ratelimit"
	"heartbeat-controlplane/pkg/security"
	"heartbeat-controlplane/services/license"
	"heartbeat-controlplane/services/team"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var (
	tracer = otel.Tracer("heartbeat-controlplane/services/heartbeat")

	errNoKeyPair = errors.New("heartbeat: team has no signing key")
)

const publishTimeout = 2 * time.Second

type TeamLoader interface {
	Load(ctx context.Context, teamID string) (*team.Team, error)
}

// RequestLogPublisher hands a request log to the async writer.
type RequestLogPublisher interface {
	Publish(ctx context.Context, entry *license.RequestLog) error
}

type Options struct {
	RateLimit             int
	RateWindow            time.Duration
	DefaultTimeoutMinutes int
	// RequestLogWindow bounds the history the IP quota counts.
	RequestLogWindow time.Duration
	StrictSeats      bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RateLimit:             cfg.Heartbeat.RateLimit,
		RateWindow:            cfg.Heartbeat.RateWindow,
		DefaultTimeoutMinutes: cfg.Heartbeat.DefaultTimeoutMinutes,
		RequestLogWindow:      cfg.License.RequestLogRetention,
		StrictSeats:           cfg.Heartbeat.StrictSeats,
	}
}

type Service struct {
	opts      Options
	teams     TeamLoader
	licenses  license.Repository
	limiter   ratelimit.Limiter
	geo       geoip.Provider
	lookup    *security.KeyLookup
	signer    *security.Signer
	recorder  *Recorder
	publisher RequestLogPublisher
	node      *snowflake.Node
	validate  *validator.Validate
	guards    []guard
	now       func() time.Time
}

type ServiceParams struct {
	fx.In

	Options   Options
	Teams     TeamLoader
	Licenses  license.Repository
	Limiter   ratelimit.Limiter
	Geo       geoip.Provider
	Lookup    *security.KeyLookup
	Signer    *security.Signer
	Publisher RequestLogPublisher
	Node      *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	geo := p.Geo
	if geo == nil {
		geo = geoip.Noop()
	}

	s := &Service{
		opts:      p.Options,
		teams:     p.Teams,
		licenses:  p.Licenses,
		limiter:   p.Limiter,
		geo:       geo,
		lookup:    p.Lookup,
		signer:    p.Signer,
		recorder:  NewRecorder(p.Licenses, p.Node, p.Options.StrictSeats),
		publisher: p.Publisher,
		node:      p.Node,
		validate:  newValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.guards = s.chain()
	return s
}

// Heartbeat runs one heartbeat through the pipeline. It never returns an
// error: every outcome, including faults and panics, is a terminal code.
func (s *Service) Heartbeat(ctx context.Context, in Input) (resp Response) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "heartbeat.Heartbeat", trace.WithAttributes(
		attribute.String("team.id", in.TeamID),
	))
	defer span.End()

	sc := span.SpanContext()
	ev := &evaluation{
		input: in,
		now:   s.now(),
		log: zap.L().With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
			zap.String("team_id", in.TeamID),
		),
	}

	defer func() {
		if r := recover(); r != nil {
			ev.log.Error("heartbeat panicked", zap.Any("panic", r), zap.Stack("stack"))
			resp = newResponse(s.now(), license.StatusInternalServerError, "")
		}
		code := resp.Result.Code
		span.SetAttributes(attribute.String("heartbeat.code", code.String()))
		observe(code, time.Since(started))
		s.publish(ctx, ev, code)
	}()

	return s.evaluate(ctx, ev)
}

func (s *Service) evaluate(ctx context.Context, ev *evaluation) Response {
	for _, g := range s.guards {
		v, err := g.check(ctx, ev)
		if err != nil {
			ev.log.Error("heartbeat guard failed", zap.String("guard", g.name), zap.Error(err))
			return newResponse(s.now(), license.StatusInternalServerError, "")
		}
		if !v.passed() {
			ev.log.Info("heartbeat denied", zap.String("guard", g.name), zap.String("code", v.code.String()))
			return newResponse(s.now(), v.code, v.detail)
		}
	}

	status, err := s.recorder.Record(ctx, ev, s.seatTimeout(ev.team))
	if err != nil {
		ev.log.Error("failed to record heartbeat", zap.Error(err))
		return newResponse(s.now(), license.StatusInternalServerError, "")
	}
	if status != license.StatusValid {
		ev.log.Info("heartbeat denied", zap.String("guard", "record"), zap.String("code", status.String()))
		return newResponse(s.now(), status, "")
	}

	var signature string
	if ev.req.Challenge != "" {
		signature, err = s.sign(ev)
		if err != nil {
			ev.log.Error("failed to sign challenge", zap.Error(err))
			return newResponse(s.now(), license.StatusInternalServerError, "")
		}
	}

	resp := newResponse(s.now(), license.StatusValid, "")
	resp.ChallengeResponse = signature
	return resp
}

func (s *Service) sign(ev *evaluation) (string, error) {
	if ev.team.KeyPair == nil || ev.team.KeyPair.PrivateKey == "" {
		return "", errNoKeyPair
	}
	return s.signer.Sign(ev.req.Challenge, ev.team.KeyPair.PrivateKey)
}

// publish records the request for every heartbeat that resolved a license.
// Failures are logged and never change the decision.
func (s *Service) publish(ctx context.Context, ev *evaluation, code license.RequestStatus) {
	if ev.license == nil || s.publisher == nil {
		return
	}

	meta := map[string]any{"challenged": ev.req.Challenge != ""}
	if ev.req.CustomerID != "" {
		meta["customerId"] = ev.req.CustomerID
	}
	if ev.req.ProductID != "" {
		meta["productId"] = ev.req.ProductID
	}
	raw, _ := json.Marshal(meta)

	entry := &license.RequestLog{
		ID:               s.node.Generate().String(),
		CreatedAt:        ev.now,
		TeamID:           ev.license.TeamID,
		LicenseID:        ev.license.ID,
		IPAddress:        optional(ev.input.ClientIP),
		Country:          optional(ev.country),
		DeviceIdentifier: ev.req.DeviceIdentifier,
		Status:           code,
		Metadata:         datatypes.JSON(raw),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, entry); err != nil {
		requestLogPublishFailures.Inc()
		ev.log.Warn("failed to publish request log", zap.Error(err))
	}
}
