package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/db"
	"heartbeat-controlplane/pkg/hashistack/secretmanager"
	"heartbeat-controlplane/pkg/logger"
	"heartbeat-controlplane/pkg/security"
	"heartbeat-controlplane/services/license"
	"heartbeat-controlplane/services/team"
)

type seedFlags struct {
	name           string
	seats          int
	ipLimit        int
	expirationDays int
	encryptKey     bool
}

func main() {
	var f seedFlags
	flag.StringVar(&f.name, "name", "Demo Team", "team name")
	flag.IntVar(&f.seats, "seats", 0, "concurrent seats, 0 for unlimited")
	flag.IntVar(&f.ipLimit, "ip-limit", 0, "distinct ip limit, 0 for unlimited")
	flag.IntVar(&f.expirationDays, "expiration-days", 0, "DURATION expiration in days, 0 for none")
	flag.BoolVar(&f.encryptKey, "encrypt-key", true, "store the private key encrypted with SECRET_AES when set")
	flag.Parse()

	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		team.Module,
		license.Module,
		fx.Supply(f),
		fx.Invoke(run),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger { return fxevent.NopLogger }),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run(cfg *config.Config, conn *gorm.DB, teams team.Repository, licenses license.Repository, f seedFlags) error {
	ctx := context.Background()

	if err := conn.AutoMigrate(append(team.Models(), license.Models()...)...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pair, err := security.GenerateRSAKeyPair(2048)
	if err != nil {
		return err
	}

	privateKey := pair.PrivateKey
	if f.encryptKey && cfg.SecretAES != "" {
		privateKey, err = security.Seal([]byte(pair.PrivateKey), security.AESKey(cfg.SecretAES))
		if err != nil {
			return err
		}
	}

	teamID := uuid.NewString()
	if err := teams.Create(ctx, &team.Team{
		ID:       teamID,
		Name:     f.name,
		Settings: &team.Settings{TeamID: teamID, HeartbeatTimeout: cfg.Heartbeat.DefaultTimeoutMinutes},
		KeyPair:  &team.KeyPair{TeamID: teamID, PrivateKey: privateKey, PublicKey: pair.PublicKey},
	}); err != nil {
		return err
	}

	customer := &license.Customer{ID: uuid.NewString(), TeamID: teamID, FullName: "Demo Customer", Email: "customer@example.com"}
	if err := licenses.CreateCustomer(ctx, customer); err != nil {
		return err
	}
	product := &license.Product{ID: uuid.NewString(), TeamID: teamID, Name: "Demo Product"}
	if err := licenses.CreateProduct(ctx, product); err != nil {
		return err
	}

	key, err := security.GenerateLicenseKey()
	if err != nil {
		return err
	}
	lookup, err := security.NewKeyLookup(cfg.License.HMACSecret)
	if err != nil {
		return err
	}

	lic := &license.License{
		ID:               uuid.NewString(),
		TeamID:           teamID,
		LicenseKeyLookup: lookup.Token(key, teamID),
		ExpirationType:   license.ExpirationNone,
		Customers:        []license.Customer{*customer},
		Products:         []license.Product{*product},
	}
	if f.seats > 0 {
		lic.Seats = &f.seats
	}
	if f.ipLimit > 0 {
		lic.IPLimit = &f.ipLimit
	}
	if f.expirationDays > 0 {
		lic.ExpirationType = license.ExpirationDuration
		lic.ExpirationDays = &f.expirationDays
	}
	if err := licenses.Create(ctx, lic); err != nil {
		return err
	}

	zap.L().Info("seeded team", zap.String("team_id", teamID), zap.String("license_id", lic.ID))

	fmt.Printf("team_id:     %s\n", teamID)
	fmt.Printf("customer_id: %s\n", customer.ID)
	fmt.Printf("product_id:  %s\n", product.ID)
	fmt.Printf("license_id:  %s\n", lic.ID)
	fmt.Printf("license_key: %s\n", key)
	return nil
}
