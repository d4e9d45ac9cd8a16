package team

import (
	"time"

	"gorm.io/gorm"
)

type BlacklistType string

const (
	BlacklistIPAddress        BlacklistType = "IP_ADDRESS"
	BlacklistCountry          BlacklistType = "COUNTRY"
	BlacklistDeviceIdentifier BlacklistType = "DEVICE_IDENTIFIER"
)

const DefaultHeartbeatTimeoutMinutes = 60

// Team is the tenant owning licenses. Soft deleted teams are excluded by gorm.
type Team struct {
	ID        string         `gorm:"column:id;primaryKey;type:varchar(36)"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
	Name      string         `gorm:"column:name"`

	Settings  *Settings        `gorm:"foreignKey:TeamID"`
	KeyPair   *KeyPair         `gorm:"foreignKey:TeamID"`
	Blacklist []BlacklistEntry `gorm:"foreignKey:TeamID"`
}

type Settings struct {
	TeamID           string    `gorm:"column:team_id;primaryKey;type:varchar(36)"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
	StrictCustomers  bool      `gorm:"column:strict_customers;not null;default:false"`
	StrictProducts   bool      `gorm:"column:strict_products;not null;default:false"`
	HeartbeatTimeout int       `gorm:"column:heartbeat_timeout;not null;default:60"`
}

func (Settings) TableName() string { return "team_settings" }

// HeartbeatTimeoutMinutes returns the seat freshness window, falling back to
// fallback when the stored value is unset.
func (s *Settings) HeartbeatTimeoutMinutes(fallback int) int {
	if s != nil && s.HeartbeatTimeout > 0 {
		return s.HeartbeatTimeout
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultHeartbeatTimeoutMinutes
}

// KeyPair stores PEM keys. PrivateKey may hold AES-GCM ciphertext instead of PEM.
type KeyPair struct {
	TeamID     string    `gorm:"column:team_id;primaryKey;type:varchar(36)"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	PrivateKey string    `gorm:"column:private_key;type:text" json:"-"`
	PublicKey  string    `gorm:"column:public_key;type:text"`
}

func (KeyPair) TableName() string { return "team_key_pairs" }

type BlacklistEntry struct {
	ID        string        `gorm:"column:id;primaryKey"`
	CreatedAt time.Time     `gorm:"column:created_at"`
	TeamID    string        `gorm:"column:team_id;index;type:varchar(36)"`
	Type      BlacklistType `gorm:"column:type"`
	Value     string        `gorm:"column:value"`
}

func (BlacklistEntry) TableName() string { return "team_blacklist" }

// Models lists the tables owned by this package, for AutoMigrate.
func Models() []any {
	return []any{&Team{}, &Settings{}, &KeyPair{}, &BlacklistEntry{}}
}
