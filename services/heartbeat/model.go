package heartbeat

import (
	"net/http"
	"time"

	"heartbeat-controlplane/services/license"
)

// Request is the JSON body of a heartbeat.
type Request struct {
	LicenseKey       string `json:"licenseKey" validate:"required,license_key"`
	DeviceIdentifier string `json:"deviceIdentifier" validate:"required,min=1,max=1000"`
	CustomerID       string `json:"customerId,omitempty" validate:"omitempty,uuid"`
	ProductID        string `json:"productId,omitempty" validate:"omitempty,uuid"`
	Challenge        string `json:"challenge,omitempty" validate:"omitempty,max=1000"`
}

// Input is one heartbeat as received by the transport.
type Input struct {
	TeamID   string
	ClientIP string
	Body     []byte
}

type Result struct {
	Timestamp time.Time             `json:"timestamp"`
	Valid     bool                  `json:"valid"`
	Details   string                `json:"details"`
	Code      license.RequestStatus `json:"code"`
}

type Response struct {
	Result            Result `json:"result"`
	ChallengeResponse string `json:"challengeResponse,omitempty"`
}

var details = map[license.RequestStatus]string{
	license.StatusRateLimit:                   "Rate limited",
	license.StatusTeamNotFound:                "Team not found",
	license.StatusLicenseNotFound:             "License not found",
	license.StatusIPBlacklisted:               "IP address is blacklisted",
	license.StatusCountryBlacklisted:          "Country is blacklisted",
	license.StatusDeviceIdentifierBlacklisted: "Device identifier is blacklisted",
	license.StatusCustomerNotFound:            "Customer not found",
	license.StatusProductNotFound:             "Product not found",
	license.StatusLicenseSuspended:            "License suspended",
	license.StatusLicenseExpired:              "License expired",
	license.StatusIPLimitReached:              "IP limit reached",
	license.StatusMaximumConcurrentSeats:      "License seat limit reached",
	license.StatusValid:                       "License heartbeat successful",
	license.StatusInternalServerError:         "Internal server error",
}

const detailInvalidTeamID = "Invalid team UUID"

func newResponse(now time.Time, code license.RequestStatus, detail string) Response {
	if detail == "" {
		detail = details[code]
	}
	return Response{Result: Result{
		Timestamp: now,
		Valid:     code == license.StatusValid,
		Details:   detail,
		Code:      code,
	}}
}

// HTTPStatus maps a result code to the HTTP status served with it.
func HTTPStatus(code license.RequestStatus) int {
	switch code {
	case license.StatusValid:
		return http.StatusOK
	case license.StatusBadRequest:
		return http.StatusBadRequest
	case license.StatusRateLimit:
		return http.StatusTooManyRequests
	case license.StatusTeamNotFound, license.StatusLicenseNotFound,
		license.StatusCustomerNotFound, license.StatusProductNotFound:
		return http.StatusNotFound
	case license.StatusIPBlacklisted, license.StatusCountryBlacklisted,
		license.StatusDeviceIdentifierBlacklisted, license.StatusLicenseSuspended,
		license.StatusLicenseExpired, license.StatusIPLimitReached,
		license.StatusMaximumConcurrentSeats:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
