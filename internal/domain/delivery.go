package domain

// Delivery outcomes recorded in the ledger.
const (
	DeliverySent          = "sent"
	DeliveryProviderError = "provider_error"
	DeliveryFailed        = "failed"
)

// DeliveryRecord describes one relay attempt. It carries no
// submitter data.
type DeliveryRecord struct {
	PK            string
	SK            string
	CorrelationID string
	Outcome       string
	ProviderID    string
	ProviderError string
	CreatedAt     string
	TTL           int64
}
