package geoip

import (
	"context"
	"strings"

	"github.com/biter777/countries"
)

//go:generate mockgen -source $GOFILE -destination provider_mocks.go -package $GOPACKAGE

// Provider resolves an IP address to an ISO 3166-1 alpha-3 country code.
// An empty code with a nil error means the country is unknown.
type Provider interface {
	Country(ctx context.Context, ip string) (string, error)
}

// ToAlpha3 maps an alpha-2 country code to alpha-3, or "" when unknown.
func ToAlpha3(alpha2 string) string {
	alpha2 = strings.TrimSpace(alpha2)
	if len(alpha2) != 2 {
		return ""
	}
	code := countries.ByName(strings.ToUpper(alpha2))
	if code == countries.Unknown {
		return ""
	}
	return code.Alpha3()
}

type noop struct{}

// Noop never resolves a country, which disables country blacklists.
func Noop() Provider { return noop{} }

func (noop) Country(context.Context, string) (string, error) { return "", nil }
