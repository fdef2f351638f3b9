package audit

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"borsibaar-cloud/internal/auth"
)

// EntryFromRequest builds an entry carrying the caller identity and client details.
func EntryFromRequest(r *http.Request, action, resourceType, resourceID string, meta map[string]any) Entry {
	organizationID, _ := auth.OrganizationIDFromContext(r.Context())
	entry := Entry{
		OrganizationID: organizationID,
		Actor:          auth.SubjectFromContext(r.Context()),
		Role:           string(auth.RoleFromContext(r.Context())),
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		IP:             ClientIP(r),
		UserAgent:      r.UserAgent(),
	}
	if meta != nil {
		payload, err := json.Marshal(meta)
		if err == nil {
			entry.Metadata = payload
		}
	}
	return entry
}

// ClientIP extracts client ip from proxy headers or RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
