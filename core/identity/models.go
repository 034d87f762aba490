package identity

import "sort"

// Role is the closed set of portals a resolved caller can belong to.
// Exactly one role attaches to an external identity at any time; the
// resolver enforces this by construction (first match in ResolutionOrder
// wins), not by a stored constraint.
type Role string

const (
	RoleStudent    Role = "student"
	RoleTeacher    Role = "teacher"
	RoleParent     Role = "parent"
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
)

// ResolutionOrder is the documented profile lookup priority. Changing it
// changes which role wins when an id collides across collections.
var ResolutionOrder = []Role{RoleStudent, RoleTeacher, RoleParent, RoleAdmin, RoleAccountant}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleParent, RoleAdmin, RoleAccountant:
		return true
	}
	return false
}

func (r Role) In(roles []Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the role-scoped record correlated to an external identity.
// StudentNo and ParentID are only set for students. A Synthesized profile
// was built from provider metadata alone (no domain record exists yet);
// data-scoped queries for it come back empty.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	StudentNo   string `json:"student_no,omitempty"`
	ParentID    string `json:"-"`
	Synthesized bool   `json:"synthesized,omitempty"`
}

type Source string

const (
	SourceLocal    Source = "local"
	SourceProvider Source = "provider"
)

// VerifiedIdentity is the outcome of credential verification. RoleHint is
// only set on the local-token path; the resolver remains authoritative.
type VerifiedIdentity struct {
	ExternalID string
	Email      string
	RoleHint   Role
	Source     Source
}

// Scope is the set of student record ids the caller may access in the
// current request. It is ephemeral: recomputed per request, never stored.
type Scope map[string]struct{}

func NewScope(ids ...string) Scope {
	s := make(Scope, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Scope) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Scope) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Caller is the immutable per-request outcome of the pipeline, threaded
// through handlers instead of being attached to mutable request state.
type Caller struct {
	Identity VerifiedIdentity
	Role     Role
	Profile  Profile
	Scope    Scope
}

func (c Caller) Is(role Role) bool { return c.Role == role }
