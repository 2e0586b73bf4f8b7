package domain

// Submission is the contact-form payload. It lives for one request and is
// never persisted.
type Submission struct {
	Name    string `json:"name" validate:"required,max=100,singleline"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Email is a provider-agnostic outbound message.
type Email struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// ProviderError is the error payload reported by the email provider. It is
// passed through to the caller verbatim.
type ProviderError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// SendReceipt is the provider metadata for an accepted email.
type SendReceipt struct {
	ID string `json:"id"`
}
