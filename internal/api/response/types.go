package response

// NonceResponse is returned by GET /nonce/{address}
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// LoginResponse is returned by POST /login on success
type LoginResponse struct {
	Key string `json:"key"`
}

// KeycheckResponse is returned by GET /keycheck. Address is empty when the
// key is unknown.
type KeycheckResponse struct {
	Address string `json:"address,omitempty"`
}

// ErrorResponse is the error body shape
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
}
