package permission

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Token is a single named capability an admin can hold.
type Token string

const (
	ReportView     Token = "report_view"
	ReportVerify   Token = "report_verify"
	ReportReject   Token = "report_reject"
	ReportResolve  Token = "report_resolve"
	ReportUpdate   Token = "report_update"
	ReportDelete   Token = "report_delete"
	NewsCreate     Token = "news_create"
	NewsUpdate     Token = "news_update"
	NewsDelete     Token = "news_delete"
	AnalyticsView  Token = "analytics_view"
	AuditView      Token = "audit_view"
	SettingsManage Token = "settings_manage"
	AdminManage    Token = "admin_manage"
	AdminDelete    Token = "admin_delete"
)

// Role of an admin account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// All lists every known token in display order.
var All = []Token{
	ReportView, ReportVerify, ReportReject, ReportResolve, ReportUpdate, ReportDelete,
	NewsCreate, NewsUpdate, NewsDelete,
	AnalyticsView, AuditView,
	SettingsManage, AdminManage, AdminDelete,
}

// DefaultAdmin is granted to a regular admin created without an explicit list.
var DefaultAdmin = []Token{ReportView, ReportVerify, ReportReject, ReportResolve, ReportUpdate, AnalyticsView}

// IsValid reports whether t is one of the known tokens.
func (t Token) IsValid() bool {
	switch t {
	case ReportView, ReportVerify, ReportReject, ReportResolve, ReportUpdate, ReportDelete,
		NewsCreate, NewsUpdate, NewsDelete,
		AnalyticsView, AuditView,
		SettingsManage, AdminManage, AdminDelete:
		return true
	}
	return false
}

// SuperAdminOnly reports whether t can only be held through the super_admin role.
func (t Token) SuperAdminOnly() bool {
	switch t {
	case SettingsManage, AdminManage, AdminDelete:
		return true
	}
	return false
}

// ParseToken converts a raw string into a Token.
func ParseToken(s string) (Token, error) {
	t := Token(strings.TrimSpace(strings.ToLower(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return t, nil
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(strings.ToLower(s))); r {
	case RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ParseTokens parses a list of raw strings, dropping duplicates.
func ParseTokens(raw []string) ([]Token, error) {
	seen := make(map[Token]struct{}, len(raw))
	out := make([]Token, 0, len(raw))
	for _, s := range raw {
		t, err := ParseToken(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// ValidateGrant checks that tokens may be stored on an account with the given role.
// Regular admins can never be granted super-admin-only tokens.
func ValidateGrant(role Role, tokens []Token) error {
	if role == RoleSuperAdmin {
		return nil
	}
	for _, t := range tokens {
		if !t.IsValid() {
			return fmt.Errorf("unknown permission %q", t)
		}
		if t.SuperAdminOnly() {
			return fmt.Errorf("permission %q is reserved for super admins", t)
		}
	}
	return nil
}

// Set is the resolved permission view of one admin.
type Set struct {
	role   Role
	tokens map[Token]struct{}
}

// NewSet builds a Set from a role and explicit tokens. Unknown tokens are ignored.
func NewSet(role Role, tokens []Token) Set {
	s := Set{role: role, tokens: make(map[Token]struct{}, len(tokens))}
	for _, t := range tokens {
		if t.IsValid() {
			s.tokens[t] = struct{}{}
		}
	}
	return s
}

// FromJSON builds a Set from the JSON array stored on the admin row.
func FromJSON(role Role, raw []byte) Set {
	var list []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &list); err != nil {
			list = nil
		}
	}
	tokens := make([]Token, 0, len(list))
	for _, s := range list {
		if t, err := ParseToken(s); err == nil {
			tokens = append(tokens, t)
		}
	}
	return NewSet(role, tokens)
}

func (s Set) Role() Role {
	return s.role
}

// IsSuperAdmin reports whether the set belongs to a super admin.
func (s Set) IsSuperAdmin() bool {
	return s.role == RoleSuperAdmin
}

// HasPermission is true for every token when the role is super_admin.
func (s Set) HasPermission(t Token) bool {
	if s.IsSuperAdmin() {
		return t.IsValid()
	}
	_, ok := s.tokens[t]
	return ok
}

func (s Set) CanViewReports() bool    { return s.HasPermission(ReportView) }
func (s Set) CanVerifyReports() bool  { return s.HasPermission(ReportVerify) }
func (s Set) CanRejectReports() bool  { return s.HasPermission(ReportReject) }
func (s Set) CanResolveReports() bool { return s.HasPermission(ReportResolve) }
func (s Set) CanUpdateReports() bool  { return s.HasPermission(ReportUpdate) }
func (s Set) CanDeleteReports() bool  { return s.HasPermission(ReportDelete) }
func (s Set) CanViewAnalytics() bool  { return s.HasPermission(AnalyticsView) }
func (s Set) CanViewAuditLogs() bool  { return s.HasPermission(AuditView) }
func (s Set) CanManageSettings() bool { return s.HasPermission(SettingsManage) }
func (s Set) CanManageAdmins() bool   { return s.HasPermission(AdminManage) }
func (s Set) CanDeleteAdmins() bool   { return s.HasPermission(AdminDelete) }

// CanManageNews is true when any of the news tokens is held.
func (s Set) CanManageNews() bool {
	return s.HasPermission(NewsCreate) || s.HasPermission(NewsUpdate) || s.HasPermission(NewsDelete)
}

// Tokens returns the effective tokens, sorted. A super admin gets the full list.
func (s Set) Tokens() []Token {
	if s.IsSuperAdmin() {
		out := make([]Token, len(All))
		copy(out, All)
		return out
	}
	out := make([]Token, 0, len(s.tokens))
	for t := range s.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns Tokens as plain strings for JSON responses.
func (s Set) Strings() []string {
	tokens := s.Tokens()
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = string(t)
	}
	return out
}
