package models

// MobileMoneyDetails is sent with mobile money charges
type MobileMoneyDetails struct {
	Provider string `json:"provider"`
}

// InitializeRequest creates a transaction on the payment gateway
type InitializeRequest struct {
	Email            string                 `json:"email"`
	AmountMinorUnits int64                  `json:"amount"`
	Currency         string                 `json:"currency"`
	Channels         []string               `json:"channels,omitempty"`
	CallbackURL      string                 `json:"callback_url,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	MobileMoney      *MobileMoneyDetails    `json:"mobile_money,omitempty"`
}

// InitializeResponse is the gateway's answer to an InitializeRequest
type InitializeResponse struct {
	Reference        string
	AuthorizationURL string
	Raw              GatewayData
}

// VerifyResponse is the gateway's view of a reference
type VerifyResponse struct {
	Status TransactionStatus
	Raw    GatewayData
}
