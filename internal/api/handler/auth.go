package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sporelabs/sporeverse/internal/api/request"
	"github.com/sporelabs/sporeverse/internal/api/response"
	"github.com/sporelabs/sporeverse/internal/services/credential"
)

// AuthHandler handles the wallet login endpoints
type AuthHandler struct {
	credentials *credential.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(credentials *credential.Service) *AuthHandler {
	return &AuthHandler{credentials: credentials}
}

// Nonce handles GET /nonce/{address}
func (h *AuthHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	nonce := h.credentials.IssueNonce(address)

	response.JSON(w, http.StatusOK, response.NonceResponse{Nonce: nonce})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, err := h.credentials.Login(req.Address, req.Signature)
	if err != nil {
		// An address that skipped the nonce step fails verification the
		// same way a bad signature does
		if errors.Is(err, credential.ErrSignatureMismatch) || errors.Is(err, credential.ErrUnknownNonce) {
			response.Error(w, http.StatusUnauthorized, "signature mismatch")
			return
		}
		response.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	response.JSON(w, http.StatusOK, response.LoginResponse{Key: key})
}

// Keycheck handles GET /keycheck. The key travels in the request body, and
// an unknown key still answers 200 with no address.
func (h *AuthHandler) Keycheck(w http.ResponseWriter, r *http.Request) {
	var req request.KeycheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	address, _ := h.credentials.Resolve(req.Key)

	response.JSON(w, http.StatusOK, response.KeycheckResponse{Address: string(address)})
}
