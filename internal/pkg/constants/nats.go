package constants

// NATS Subjects
const (
	SubjectPaymentInitiated = "payment.initiated"
	SubjectPaymentSucceeded = "payment.succeeded"
	SubjectPaymentFailed    = "payment.failed"
)
