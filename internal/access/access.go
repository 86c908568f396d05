// Package access decides whether a caller may perform an action on a resource.
package access

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
	"github.com/bloghub/blog-api/internal/pkg/metrics"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

//go:embed model.conf
var modelContent string

//go:embed policy.csv
var policyContent string

// Resource is a kind of protected object.
type Resource string

// Resources.
const (
	ResourcePost    Resource = "post"
	ResourceComment Resource = "comment"
	ResourceImage   Resource = "image"
)

// Action is an operation on a resource.
type Action string

// Actions.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// PolicyKind says how a (resource, action) pair is decided.
type PolicyKind int

// Policy kinds.
const (
	PolicyPublic PolicyKind = iota + 1
	PolicyRole
	PolicyOwnerOrAdmin
)

// Decision reasons.
const (
	ReasonPublic           = "public"
	ReasonRoleGranted      = "role_granted"
	ReasonInsufficientRole = "insufficient_role"
	ReasonUnauthenticated  = "unauthenticated"
	ReasonAdminOverride    = "admin_override"
	ReasonOwner            = "owner"
	ReasonNotOwner         = "not_owner"
)

// ownerSubject is the casbin subject checked once the caller is proven to own the resource.
const ownerSubject = "owner"

type ruleKey struct {
	resource Resource
	action   Action
}

var rules = map[ruleKey]PolicyKind{
	{ResourcePost, ActionRead}:      PolicyPublic,
	{ResourcePost, ActionCreate}:    PolicyRole,
	{ResourcePost, ActionUpdate}:    PolicyRole,
	{ResourcePost, ActionDelete}:    PolicyRole,
	{ResourceComment, ActionRead}:   PolicyPublic,
	{ResourceComment, ActionCreate}: PolicyRole,
	{ResourceComment, ActionUpdate}: PolicyOwnerOrAdmin,
	{ResourceComment, ActionDelete}: PolicyOwnerOrAdmin,
	{ResourceImage, ActionCreate}:   PolicyRole,
}

// Request names what the caller wants to do.
// ResourceID is only consulted for owner-or-admin policies.
type Request struct {
	Resource   Resource
	Action     Action
	ResourceID string
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err converts a deny into the matching access error. It returns nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return ErrUnauthenticated
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

// OwnerResolver returns the user ID owning a resource.
// Implementations return an error wrapping ErrResourceNotFound when the resource does not exist.
type OwnerResolver interface {
	ResourceOwner(ctx context.Context, id string) (string, error)
}

// OwnerResolverFunc adapts a function to OwnerResolver.
type OwnerResolverFunc func(ctx context.Context, id string) (string, error)

// ResourceOwner calls f.
func (f OwnerResolverFunc) ResourceOwner(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}

// Evaluator evaluates access requests against the role grants and resource ownership.
// It holds no mutable state after construction.
type Evaluator struct {
	enforcer  *casbin.SyncedEnforcer
	resolvers map[Resource]OwnerResolver
}

// NewEvaluator builds the evaluator with the embedded grants.
func NewEvaluator(resolvers map[Resource]OwnerResolver) (*Evaluator, error) {
	m, err := model.NewModelFromString(modelContent)
	if err != nil {
		return nil, fmt.Errorf("parse access model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(policyContent))
	if err != nil {
		return nil, fmt.Errorf("create access enforcer: %w", err)
	}

	for key, kind := range rules {
		if kind == PolicyOwnerOrAdmin && resolvers[key.resource] == nil {
			return nil, fmt.Errorf("no owner resolver for %s", key.resource)
		}
	}

	copied := make(map[Resource]OwnerResolver, len(resolvers))
	for k, v := range resolvers {
		copied[k] = v
	}

	return &Evaluator{
		enforcer:  enforcer,
		resolvers: copied,
	}, nil
}

// Evaluate decides whether caller may perform req. A nil caller is anonymous.
//
// Errors are returned only when no decision can be made: ErrNoPolicy for an
// unknown (resource, action) pair, ErrResourceNotFound when the owner of the
// target cannot be found, or an enforcer failure.
func (e *Evaluator) Evaluate(ctx context.Context, caller *domain.Principal, req Request) (Decision, error) {
	kind, ok := rules[ruleKey{req.Resource, req.Action}]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s %s", ErrNoPolicy, req.Action, req.Resource)
	}

	if kind == PolicyPublic {
		return e.record(req, Decision{Allowed: true, Reason: ReasonPublic}), nil
	}

	if caller == nil {
		return e.record(req, Decision{Reason: ReasonUnauthenticated}), nil
	}
	if !caller.Role.IsValid() {
		return e.record(req, Decision{Reason: ReasonInsufficientRole}), nil
	}

	switch kind {
	case PolicyRole:
		allowed, err := e.enforce(string(caller.Role), req)
		if err != nil {
			return Decision{}, err
		}
		if allowed {
			return e.record(req, Decision{Allowed: true, Reason: ReasonRoleGranted}), nil
		}
		return e.record(req, Decision{Reason: ReasonInsufficientRole}), nil

	case PolicyOwnerOrAdmin:
		owner, err := e.resolvers[req.Resource].ResourceOwner(ctx, req.ResourceID)
		if err != nil {
			return Decision{}, err
		}

		allowed, err := e.enforce(string(caller.Role), req)
		if err != nil {
			return Decision{}, err
		}
		if allowed {
			return e.record(req, Decision{Allowed: true, Reason: ReasonAdminOverride}), nil
		}

		if caller.UserID != "" && caller.UserID == owner {
			allowed, err := e.enforce(ownerSubject, req)
			if err != nil {
				return Decision{}, err
			}
			if allowed {
				return e.record(req, Decision{Allowed: true, Reason: ReasonOwner}), nil
			}
		}

		ctxlog.FromContext(ctx).Debug("access denied",
			"resource", req.Resource,
			"action", req.Action,
			"resource_id", req.ResourceID,
		)
		return e.record(req, Decision{Reason: ReasonNotOwner}), nil
	}

	return Decision{}, fmt.Errorf("%w: %s %s", ErrNoPolicy, req.Action, req.Resource)
}

// Authorize evaluates req and returns nil only when it is allowed.
func (e *Evaluator) Authorize(ctx context.Context, caller *domain.Principal, req Request) error {
	decision, err := e.Evaluate(ctx, caller, req)
	if err != nil {
		return err
	}
	return decision.Err()
}

func (e *Evaluator) enforce(subject string, req Request) (bool, error) {
	allowed, err := e.enforcer.Enforce(subject, string(req.Resource), string(req.Action))
	if err != nil {
		return false, fmt.Errorf("enforce %s %s for %s: %w", req.Action, req.Resource, subject, err)
	}
	return allowed, nil
}

func (e *Evaluator) record(req Request, d Decision) Decision {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	metrics.AccessDecisions.WithLabelValues(string(req.Resource), string(req.Action), outcome).Inc()
	return d
}
