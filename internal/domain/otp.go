package domain

import "time"

type OTP struct {
	ID           string    `json:"id"`
	HashedOTP    string    `json:"hashedOtp"`
	CreatedAt    time.Time `json:"createdAt"`
	AttemptCount int       `json:"attemptCount"`
	IsValid      bool      `json:"isValid"`
	Purpose      string    `json:"purpose"`
}

// OTPPatch lista los campos a modificar en un Update.
type OTPPatch struct {
	HashedOTP    *string    `json:"hashedOtp,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	AttemptCount *int       `json:"attemptCount,omitempty"`
	IsValid      *bool      `json:"isValid,omitempty"`
	Purpose      *string    `json:"purpose,omitempty"`
}

func (p OTPPatch) Apply(o OTP) OTP {
	if p.HashedOTP != nil {
		o.HashedOTP = *p.HashedOTP
	}
	if p.CreatedAt != nil {
		o.CreatedAt = *p.CreatedAt
	}
	if p.AttemptCount != nil {
		o.AttemptCount = *p.AttemptCount
	}
	if p.IsValid != nil {
		o.IsValid = *p.IsValid
	}
	if p.Purpose != nil {
		o.Purpose = *p.Purpose
	}
	return o
}

// ExpiresAt calcula el vencimiento para un ttl dado.
func (o OTP) ExpiresAt(ttl time.Duration) time.Time {
	return o.CreatedAt.Add(ttl)
}
