package models

// OutboundMessageRequest is a WhatsApp text pushed by staff or by the alert digest.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}
