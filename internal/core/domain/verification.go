package domain

import "time"

type VerificationStatus string

const (
	StatusSubmitted  VerificationStatus = "submitted"
	StatusProcessing VerificationStatus = "processing"
	StatusCompleted  VerificationStatus = "completed"
	StatusFailed     VerificationStatus = "failed"
)

// Verification is one registrant's document check as tracked by the
// service: the image reference, the claim to corroborate, and eventually
// the engine's result. The engine itself never sees this record; it is the
// submit/process orchestration's state.
type Verification struct {
	ID         string                `json:"id"`
	ImageURL   string                `json:"image_url,omitempty"`
	StorageKey string                `json:"storage_key,omitempty"`
	Claim      IdentityClaim         `json:"claim"`
	Status     VerificationStatus    `json:"status"`
	Result     *IdentificationResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}
