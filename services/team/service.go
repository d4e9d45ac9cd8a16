package team

import (
	"context"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"heartbeat-controlplane/pkg/errutil"
	"heartbeat-controlplane/pkg/security"

	"github.com/go-jose/go-jose/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 5 * time.Second

type Service struct {
	repo  Repository
	group singleflight.Group
}

type ServiceParams struct {
	fx.In

	Repository Repository
}

func NewService(p ServiceParams) *Service {
	return &Service{repo: p.Repository}
}

// Load returns the team aggregate, collapsing concurrent loads of the same id
// into a single query. A nil team means not found.
//
// The shared query does not inherit any one caller's cancellation, so a
// caller that gives up only abandons its own wait.
func (s *Service) Load(ctx context.Context, teamID string) (*Team, error) {
	ch := s.group.DoChan(teamID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.repo.FindByID(ctx, teamID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		team, _ := res.Val.(*Team)
		return team, nil
	}
}

// JWKS publishes the team's public signing key.
func (s *Service) JWKS(ctx context.Context, teamID string) (*jose.JSONWebKeySet, error) {
	span := trace.SpanFromContext(ctx).SpanContext()
	zapLog := zap.L().With(
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
		zap.String("team_id", teamID),
	)

	if _, err := uuid.Parse(teamID); err != nil {
		return nil, errutil.BadRequest("Invalid team UUID", err,
			errutil.WithDetails(errutil.Detail{Field: "teamId", Message: "must be a UUID"}))
	}

	team, err := s.Load(ctx, teamID)
	if err != nil {
		zapLog.Error("failed to load team", zap.Error(err))
		return nil, errutil.Internal("Internal server error", err)
	}
	if team == nil || team.KeyPair == nil {
		return nil, errutil.NotFound("Team not found", nil)
	}

	pub, err := security.ParsePublicKey([]byte(team.KeyPair.PublicKey))
	if err != nil {
		zapLog.Error("stored public key is invalid", zap.Error(err))
		return nil, errutil.Internal("Internal server error", err)
	}

	var alg string
	switch pub.(type) {
	case *rsa.PublicKey:
		alg = string(jose.RS256)
	case ed25519.PublicKey:
		alg = string(jose.EdDSA)
	default:
		return nil, errutil.Internal("Internal server error", fmt.Errorf("unsupported public key %T", pub))
	}

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       pub,
			KeyID:     team.ID,
			Algorithm: alg,
			Use:       "sig",
		}},
	}, nil
}
