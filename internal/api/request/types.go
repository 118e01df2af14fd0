package request

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// KeycheckRequest is the body of GET /keycheck
type KeycheckRequest struct {
	Key string `json:"key"`
}
