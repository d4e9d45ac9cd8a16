package license

import (
	"time"

	"gorm.io/datatypes"
)

type ExpirationType string

const (
	ExpirationNone     ExpirationType = "NONE"
	ExpirationDate     ExpirationType = "DATE"
	ExpirationDuration ExpirationType = "DURATION"
)

// RequestStatus is the terminal result code of a heartbeat.
type RequestStatus string

const (
	StatusBadRequest                  RequestStatus = "BAD_REQUEST"
	StatusRateLimit                   RequestStatus = "RATE_LIMIT"
	StatusTeamNotFound                RequestStatus = "TEAM_NOT_FOUND"
	StatusLicenseNotFound             RequestStatus = "LICENSE_NOT_FOUND"
	StatusIPBlacklisted               RequestStatus = "IP_BLACKLISTED"
	StatusCountryBlacklisted          RequestStatus = "COUNTRY_BLACKLISTED"
	StatusDeviceIdentifierBlacklisted RequestStatus = "DEVICE_IDENTIFIER_BLACKLISTED"
	StatusCustomerNotFound            RequestStatus = "CUSTOMER_NOT_FOUND"
	StatusProductNotFound             RequestStatus = "PRODUCT_NOT_FOUND"
	StatusLicenseSuspended            RequestStatus = "LICENSE_SUSPENDED"
	StatusLicenseExpired              RequestStatus = "LICENSE_EXPIRED"
	StatusIPLimitReached              RequestStatus = "IP_LIMIT_REACHED"
	StatusMaximumConcurrentSeats      RequestStatus = "MAXIMUM_CONCURRENT_SEATS"
	StatusValid                       RequestStatus = "VALID"
	StatusInternalServerError         RequestStatus = "INTERNAL_SERVER_ERROR"
)

func (s RequestStatus) String() string { return string(s) }

type License struct {
	ID               string         `gorm:"column:id;primaryKey;type:varchar(36)"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at"`
	TeamID           string         `gorm:"column:team_id;type:varchar(36);uniqueIndex:idx_license_team_lookup"`
	LicenseKeyLookup string         `gorm:"column:license_key_lookup;type:varchar(64);uniqueIndex:idx_license_team_lookup"`
	Suspended        bool           `gorm:"column:suspended;not null;default:false"`
	ExpirationType   ExpirationType `gorm:"column:expiration_type;not null;default:'NONE'"`
	ExpirationDate   *time.Time     `gorm:"column:expiration_date"`
	ExpirationDays   *int           `gorm:"column:expiration_days"`
	IPLimit          *int           `gorm:"column:ip_limit"`
	Seats            *int           `gorm:"column:seats"`

	Customers   []Customer   `gorm:"many2many:license_customers"`
	Products    []Product    `gorm:"many2many:license_products"`
	Heartbeats  []Heartbeat  `gorm:"foreignKey:LicenseID"`
	RequestLogs []RequestLog `gorm:"foreignKey:LicenseID"`
}

func (l *License) CustomerIDs() []string {
	ids := make([]string, 0, len(l.Customers))
	for _, c := range l.Customers {
		ids = append(ids, c.ID)
	}
	return ids
}

func (l *License) ProductIDs() []string {
	ids := make([]string, 0, len(l.Products))
	for _, p := range l.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

type Customer struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	TeamID    string    `gorm:"column:team_id;index;type:varchar(36)"`
	FullName  string    `gorm:"column:full_name"`
	Email     string    `gorm:"column:email"`
}

type Product struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	TeamID    string    `gorm:"column:team_id;index;type:varchar(36)"`
	Name      string    `gorm:"column:name"`
}

// Heartbeat is the last-seen state of one device under one license.
type Heartbeat struct {
	ID               string    `gorm:"column:id;primaryKey"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
	TeamID           string    `gorm:"column:team_id;type:varchar(36)"`
	LicenseID        string    `gorm:"column:license_id;type:varchar(36);uniqueIndex:idx_heartbeat_license_device"`
	DeviceIdentifier string    `gorm:"column:device_identifier;type:varchar(1000);uniqueIndex:idx_heartbeat_license_device"`
	LastBeatAt       time.Time `gorm:"column:last_beat_at"`
	IPAddress        *string   `gorm:"column:ip_address"`
}

type RequestLog struct {
	ID               string         `gorm:"column:id;primaryKey"`
	CreatedAt        time.Time      `gorm:"column:created_at;index"`
	TeamID           string         `gorm:"column:team_id;type:varchar(36);index"`
	LicenseID        string         `gorm:"column:license_id;type:varchar(36);index"`
	IPAddress        *string        `gorm:"column:ip_address"`
	Country          *string        `gorm:"column:country;type:varchar(3)"`
	DeviceIdentifier string         `gorm:"column:device_identifier;type:varchar(1000)"`
	Status           RequestStatus  `gorm:"column:status;index"`
	Metadata         datatypes.JSON `gorm:"column:metadata"`
}

// Models lists the tables owned by this package, for AutoMigrate.
func Models() []any {
	return []any{&Customer{}, &Product{}, &License{}, &Heartbeat{}, &RequestLog{}}
}
