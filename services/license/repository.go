package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"heartbeat-controlplane/pkg/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// FindByLookup loads a license of a live team with its customers,
	// products, heartbeats and VALID request logs created since logsSince.
	FindByLookup(ctx context.Context, teamID, lookup string, logsSince time.Time) (*License, error)
	// ActivateExpiration sets expiration_date only while it is still NULL and
	// reports whether this call performed the transition.
	ActivateExpiration(ctx context.Context, licenseID string, expiresAt time.Time) (bool, error)
	UpsertHeartbeat(ctx context.Context, hb *Heartbeat) error
	ListHeartbeats(ctx context.Context, licenseID string) ([]Heartbeat, error)
	LockLicense(ctx context.Context, licenseID string) error
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	Create(ctx context.Context, license *License) error
	CreateCustomer(ctx context.Context, customer *Customer) error
	CreateProduct(ctx context.Context, product *Product) error

	CreateRequestLog(ctx context.Context, log *RequestLog) error
	PurgeRequestLogs(ctx context.Context, before time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindByLookup(ctx context.Context, teamID, lookup string, logsSince time.Time) (*License, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var lic License
	err := r.db.WithContext(ctx).
		Preload("Customers").
		Preload("Products").
		Preload("Heartbeats").
		Preload("RequestLogs", "created_at >= ? AND status = ?", logsSince, StatusValid).
		Where("licenses.team_id = ? AND licenses.license_key_lookup = ?", teamID, lookup).
		Where("EXISTS (SELECT 1 FROM teams WHERE teams.id = licenses.team_id AND teams.deleted_at IS NULL)").
		First(&lic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find license: %w", err)
	}
	return &lic, nil
}

func (r *gormRepository) ActivateExpiration(ctx context.Context, licenseID string, expiresAt time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, gorm.ErrInvalidDB
	}

	res := r.db.WithContext(ctx).
		Model(&License{}).
		Where("id = ? AND expiration_date IS NULL", licenseID).
		Updates(map[string]any{
			"expiration_date": expiresAt,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("activate expiration: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *gormRepository) UpsertHeartbeat(ctx context.Context, hb *Heartbeat) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "license_id"}, {Name: "device_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_beat_at", "ip_address", "updated_at"}),
		}).
		Create(hb).Error
	if err != nil {
		return fmt.Errorf("upsert heartbeat: %w", err)
	}
	return nil
}

func (r *gormRepository) ListHeartbeats(ctx context.Context, licenseID string) ([]Heartbeat, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var heartbeats []Heartbeat
	if err := r.db.WithContext(ctx).Where("license_id = ?", licenseID).Find(&heartbeats).Error; err != nil {
		return nil, fmt.Errorf("list heartbeats: %w", err)
	}
	return heartbeats, nil
}

// LockLicense takes a row lock on the license for the rest of the
// transaction. SQLite has no row locks; its single writer already serializes.
func (r *gormRepository) LockLicense(ctx context.Context, licenseID string) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}

	query := r.db.WithContext(ctx).Model(&License{}).Select("id").Where("id = ?", licenseID)
	if !db.IsSQLite(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var locked License
	if err := query.Take(&locked).Error; err != nil {
		return fmt.Errorf("lock license: %w", err)
	}
	return nil
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) Create(ctx context.Context, license *License) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	if err := r.db.WithContext(ctx).Create(license).Error; err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

func (r *gormRepository) CreateCustomer(ctx context.Context, customer *Customer) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *gormRepository) CreateProduct(ctx context.Context, product *Product) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *gormRepository) CreateRequestLog(ctx context.Context, log *RequestLog) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	// redelivered tasks carry the same id
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(log).Error
	if err != nil {
		return fmt.Errorf("create request log: %w", err)
	}
	return nil
}

func (r *gormRepository) PurgeRequestLogs(ctx context.Context, before time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, gorm.ErrInvalidDB
	}
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&RequestLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge request logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
