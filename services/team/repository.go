package team

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, teamID string) (*Team, error)
	Create(ctx context.Context, team *Team) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// FindByID loads a live team with settings, key pair and blacklist. It
// returns nil, nil when the team does not exist or is soft deleted.
func (r *gormRepository) FindByID(ctx context.Context, teamID string) (*Team, error) {
	if r == nil || r.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var team Team
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Preload("KeyPair").
		Preload("Blacklist").
		Where("id = ?", teamID).
		First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find team: %w", err)
	}
	return &team, nil
}

// Create inserts the team together with its settings, key pair and blacklist.
func (r *gormRepository) Create(ctx context.Context, team *Team) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	if err := r.db.WithContext(ctx).Create(team).Error; err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}
