package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// authHeader carries the raw API key on every request.
const authHeader = "wordforge-auth"

// AuthAPI guards the API with a single pre-shared key.
type AuthAPI struct {
	keyHash []byte
	logger  *slog.Logger
}

// NewAuthAPI creates an AuthAPI for the hex encoded SHA-256 key hash. An empty
// hash leaves the API open.
func NewAuthAPI(keyHash string, logger *slog.Logger) (*AuthAPI, error) {
	a := &AuthAPI{logger: logger}
	if keyHash == "" {
		return a, nil
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(keyHash))
	if err != nil || len(decoded) != sha256.Size {
		return nil, fmt.Errorf("api_key_hash must be a hex encoded sha256 digest")
	}
	a.keyHash = decoded
	return a, nil
}

// Authenticate checks for a valid key in the "wordforge-auth" header before
// passing the request on.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.keyHash == nil {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(authHeader)
		if apiKey == "" {
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}

		sum := sha256.Sum256([]byte(apiKey))
		if subtle.ConstantTimeCompare(sum[:], a.keyHash) != 1 {
			a.logger.Warn("Rejected request with invalid API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// hashAPIKey returns the value to store in api_key_hash for key.
func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
