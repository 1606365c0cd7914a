package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SignedUploadMiddleware authenticates machine uploads from the reporting job.
// The signature is hex HMAC-SHA256 over "<unix timestamp>\n<body>".
type SignedUploadMiddleware struct {
	Secret   []byte
	MaxSkew  time.Duration
	TenantID string
	MaxBytes int64
	Now      func() time.Time
}

// NewSignedUploadMiddleware constructs the middleware. Signed requests act as
// an operator of tenantID.
func NewSignedUploadMiddleware(secret []byte, maxSkew time.Duration, tenantID string, maxBytes int64) *SignedUploadMiddleware {
	return &SignedUploadMiddleware{Secret: secret, MaxSkew: maxSkew, TenantID: tenantID, MaxBytes: maxBytes, Now: time.Now}
}

// Wrap verifies the signature and attaches an operator identity.
func (m *SignedUploadMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.Secret) == 0 {
			http.Error(w, "signed upload not configured", http.StatusUnauthorized)
			return
		}
		timestamp := strings.TrimSpace(r.Header.Get("X-Upload-Timestamp"))
		signature := strings.TrimSpace(r.Header.Get("X-Upload-Signature"))
		if timestamp == "" || signature == "" {
			http.Error(w, "missing upload signature", http.StatusUnauthorized)
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			http.Error(w, "invalid upload timestamp", http.StatusUnauthorized)
			return
		}
		now := time.Now
		if m.Now != nil {
			now = m.Now
		}
		skew := now().Sub(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if m.MaxSkew > 0 && skew > m.MaxSkew {
			http.Error(w, "upload signature expired", http.StatusUnauthorized)
			return
		}

		reader := io.Reader(r.Body)
		if m.MaxBytes > 0 {
			reader = io.LimitReader(r.Body, m.MaxBytes+1)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()
		if m.MaxBytes > 0 && int64(len(body)) > m.MaxBytes {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}

		expected := SignUpload(m.Secret, timestamp, body)
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			http.Error(w, "invalid upload signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		ctx := WithIdentity(r.Context(), Identity{TenantID: m.TenantID, Role: RoleOperator, Subject: "signed-upload"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SignUpload computes the upload signature for a timestamp and body.
func SignUpload(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
