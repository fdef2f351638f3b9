package auth

import "context"

type contextKey string

const (
	contextKeyOrganization contextKey = "auth.organization_id"
	contextKeyRole         contextKey = "auth.role"
	contextKeySubject      contextKey = "auth.subject"
)

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, organizationID int64, role Role, subject string) context.Context {
	ctx = context.WithValue(ctx, contextKeyOrganization, organizationID)
	ctx = context.WithValue(ctx, contextKeyRole, role)
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	return ctx
}

// OrganizationIDFromContext extracts the caller's organization.
// The boolean is false when no identity was attached.
func OrganizationIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	organizationID, ok := ctx.Value(contextKeyOrganization).(int64)
	if !ok || organizationID == 0 {
		return 0, false
	}
	return organizationID, true
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeyRole)
	if role, ok := value.(Role); ok {
		return role
	}
	if role, ok := value.(string); ok {
		if normalized, valid := NormalizeRole(role); valid {
			return normalized
		}
	}
	return ""
}

// SubjectFromContext extracts subject from context.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value := ctx.Value(contextKeySubject)
	if subject, ok := value.(string); ok {
		return subject
	}
	return ""
}
