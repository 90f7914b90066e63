package kyc

import "github.com/go-trade-client/internal/domain"

// Resolve returns the wizard step to display. The intro is always shown first on a
// visit; after it, an under-review or approved session jumps to the status step and
// anything else follows the server step clamped to 1..8.
func Resolve(introAck bool, status domain.KYCStatus, serverStep int) int {
	if !introAck {
		return domain.StepIntro
	}
	if status == domain.KYCStatusUnderReview || status == domain.KYCStatusApproved {
		return domain.StepStatus
	}
	return min(max(serverStep, domain.StepIntro), domain.StepStatus)
}
