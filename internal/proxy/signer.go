package proxy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// signPayload builds the canonical string covered by the request
// signature: "{timestamp}\n{METHOD}\n{path}" with the body appended as a
// fourth line only when non-empty.
func signPayload(timestamp, method, path string, body []byte) []byte {
	parts := []string{timestamp, strings.ToUpper(method), path}
	if len(body) > 0 {
		parts = append(parts, string(body))
	}
	return []byte(strings.Join(parts, "\n"))
}

// signRequest returns the hex HMAC-SHA256 signature and the timestamp
// string for a mutating request.
func signRequest(secret string, unixTime int64, method, path string, body []byte) (signature, timestamp string) {
	timestamp = strconv.FormatInt(unixTime, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(signPayload(timestamp, method, path, body))
	return hex.EncodeToString(mac.Sum(nil)), timestamp
}

// mutating reports whether the method requires a signature.
func mutating(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
