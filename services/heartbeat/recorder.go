package heartbeat

import (
	"context"
	"time"

	"heartbeat-controlplane/services/license"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// Recorder persists the side effects of a heartbeat that passed every guard:
// the one-time DURATION activation and the (license, device) upsert.
type Recorder struct {
	repo        license.Repository
	node        *snowflake.Node
	strictSeats bool
}

func NewRecorder(repo license.Repository, node *snowflake.Node, strictSeats bool) *Recorder {
	return &Recorder{repo: repo, node: node, strictSeats: strictSeats}
}

// Record writes the heartbeat. In strict seat mode the license row is locked
// and the seat quota is re-checked against fresh heartbeats, which may turn
// the result into MAXIMUM_CONCURRENT_SEATS.
func (r *Recorder) Record(ctx context.Context, ev *evaluation, timeout time.Duration) (license.RequestStatus, error) {
	lic := ev.license
	status := license.StatusValid

	err := r.repo.Transaction(ctx, func(tx license.Repository) error {
		if r.strictSeats && lic.Seats != nil && *lic.Seats > 0 {
			if err := tx.LockLicense(ctx, lic.ID); err != nil {
				return err
			}
			heartbeats, err := tx.ListHeartbeats(ctx, lic.ID)
			if err != nil {
				return err
			}
			if SeatLimitReached(lic.Seats, heartbeats, ev.req.DeviceIdentifier, ev.now, timeout) {
				status = license.StatusMaximumConcurrentSeats
				return nil
			}
		}

		if ev.expiration.ActivateAt != nil {
			activated, err := tx.ActivateExpiration(ctx, lic.ID, *ev.expiration.ActivateAt)
			if err != nil {
				return err
			}
			if activated {
				ev.log.Info("license expiration started", zap.Time("expires_at", *ev.expiration.ActivateAt))
			}
		}

		return tx.UpsertHeartbeat(ctx, &license.Heartbeat{
			ID:               r.node.Generate().String(),
			CreatedAt:        ev.now,
			UpdatedAt:        ev.now,
			TeamID:           ev.team.ID,
			LicenseID:        lic.ID,
			DeviceIdentifier: ev.req.DeviceIdentifier,
			LastBeatAt:       ev.now,
			IPAddress:        optional(ev.input.ClientIP),
		})
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
