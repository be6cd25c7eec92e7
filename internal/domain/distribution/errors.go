package distribution

import "errors"

var (
	// ErrDistributionDisabled is returned when the chain integration is not
	// configured. Distinct from a settlement failure so operators don't
	// confuse "not configured" with "broken".
	ErrDistributionDisabled = errors.New("distribution disabled: chain integration not configured")

	// ErrNothingToDistribute is returned by SettleNow when the target
	// transaction is not eligible for claiming
	ErrNothingToDistribute = errors.New("no eligible withdrawals to distribute")

	// ErrSubmissionFailed is returned when the relayer rejected the batch.
	// The reservation was rolled back and the funds are back on the user's
	// balance. Any other settlement error means the funds may already be on
	// chain and the batch awaits reconciliation.
	ErrSubmissionFailed = errors.New("relayer submission failed")

	ErrInternal = errors.New("internal error")
)
