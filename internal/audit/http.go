package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the first forwarded hop, then X-Real-IP, then the peer host.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestEntry starts an entry for an HTTP action. Caller fields (tenant,
// actor, role) are left to the handler. A metadata value that fails to
// encode is dropped.
func RequestEntry(r *http.Request, action, resourceType, resourceID, grid string, metadata any) Entry {
	entry := Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Grid:         grid,
		IP:           ClientIP(r),
	}
	if r != nil {
		entry.UserAgent = r.UserAgent()
	}
	if metadata != nil {
		if payload, err := json.Marshal(metadata); err == nil {
			entry.Metadata = payload
			entry.PayloadDigest = DigestJSON(payload)
		}
	}
	return entry
}
