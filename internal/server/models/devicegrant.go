package models

import "time"

// GrantStatus is the lifecycle of a device-code grant.
type GrantStatus string

const (
	GrantPending  GrantStatus = "pending"
	GrantApproved GrantStatus = "approved"
	GrantDenied   GrantStatus = "denied"
)

// DeviceGrant is one in-flight device-code activation. The device polls with
// DeviceCode; a signed-in browser approves or denies by UserCode. UserID is
// set on approval.
type DeviceGrant struct {
	DeviceCode string
	UserCode   string
	DeviceName string
	UserID     string
	Status     GrantStatus
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
