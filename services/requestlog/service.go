package requestlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/task"
	"heartbeat-controlplane/pkg/taskname"
	"heartbeat-controlplane/services/license"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxWriteRetry = 5

type writePayload struct {
	ID               string                `json:"id"`
	CreatedAt        time.Time             `json:"created_at"`
	TeamID           string                `json:"team_id"`
	LicenseID        string                `json:"license_id"`
	IPAddress        *string               `json:"ip_address,omitempty"`
	Country          *string               `json:"country,omitempty"`
	DeviceIdentifier string                `json:"device_identifier"`
	Status           license.RequestStatus `json:"status"`
	Metadata         json.RawMessage       `json:"metadata,omitempty"`
}

// Service moves request logs off the heartbeat path: Publish enqueues them,
// the worker handlers persist and expire them.
type Service struct {
	repo      license.Repository
	enqueuer  task.Enqueuer
	retention time.Duration
	now       func() time.Time
}

type Params struct {
	fx.In

	Config     *config.Config
	Repository license.Repository
	Enqueuer   task.Enqueuer
}

func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		enqueuer:  p.Enqueuer,
		retention: p.Config.License.RequestLogRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Publish(ctx context.Context, entry *license.RequestLog) error {
	payload, err := json.Marshal(writePayload{
		ID:               entry.ID,
		CreatedAt:        entry.CreatedAt,
		TeamID:           entry.TeamID,
		LicenseID:        entry.LicenseID,
		IPAddress:        entry.IPAddress,
		Country:          entry.Country,
		DeviceIdentifier: entry.DeviceIdentifier,
		Status:           entry.Status,
		Metadata:         json.RawMessage(entry.Metadata),
	})
	if err != nil {
		return fmt.Errorf("marshal request log: %w", err)
	}

	_, err = s.enqueuer.Enqueue(ctx,
		asynq.NewTask(taskname.RequestLogWrite, payload),
		asynq.Queue(task.QueueDefault),
		asynq.MaxRetry(maxWriteRetry),
	)
	return err
}

// HandleWrite persists one request log. Redelivered tasks are no-ops.
func (s *Service) HandleWrite(ctx context.Context, t *asynq.Task) error {
	var p writePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		zap.L().Error("invalid request log payload", zap.Error(err))
		return fmt.Errorf("decode request log: %v: %w", err, asynq.SkipRetry)
	}

	entry := &license.RequestLog{
		ID:               p.ID,
		CreatedAt:        p.CreatedAt,
		TeamID:           p.TeamID,
		LicenseID:        p.LicenseID,
		IPAddress:        p.IPAddress,
		Country:          p.Country,
		DeviceIdentifier: p.DeviceIdentifier,
		Status:           p.Status,
	}
	if len(p.Metadata) > 0 {
		entry.Metadata = []byte(p.Metadata)
	}

	if err := s.repo.CreateRequestLog(ctx, entry); err != nil {
		zap.L().Error("failed to write request log",
			zap.String("request_log_id", p.ID),
			zap.String("license_id", p.LicenseID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// EnqueuePurge schedules one retention sweep. Duplicate sweeps within an hour
// collapse into one.
func (s *Service) EnqueuePurge(ctx context.Context) error {
	_, err := s.enqueuer.Enqueue(ctx,
		asynq.NewTask(taskname.RequestLogPurge, nil),
		asynq.Queue(task.QueueLow),
		asynq.Unique(time.Hour),
	)
	return err
}

// HandlePurge deletes request logs older than the retention window.
func (s *Service) HandlePurge(ctx context.Context, _ *asynq.Task) error {
	if s.retention <= 0 {
		return nil
	}

	before := s.now().Add(-s.retention)
	n, err := s.repo.PurgeRequestLogs(ctx, before)
	if err != nil {
		zap.L().Error("failed to purge request logs", zap.Time("before", before), zap.Error(err))
		return err
	}

	zap.L().Info("purged request logs", zap.Int64("deleted", n), zap.Time("before", before))
	return nil
}
