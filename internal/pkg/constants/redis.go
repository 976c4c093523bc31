package constants

// Redis key formats
const (
	KeyPaymentLock = "payment:lock:%s" // Format: payment:lock:{gateway_reference}
)
