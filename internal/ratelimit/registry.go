package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

// Policy names.
const (
	PolicySearch         = "search"
	PolicyCreatePost     = "create_post"
	PolicyLikePost       = "like_post"
	PolicyUnlikePost     = "unlike_post"
	PolicyBookmarkPost   = "bookmark_post"
	PolicyUnbookmarkPost = "unbookmark_post"
	PolicyAddComment     = "add_comment"
	PolicyAddFavorite    = "add_favorite"
	PolicyFollowUser     = "follow_user"
)

// DefaultLimit and DefaultWindow apply to every built-in policy.
const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute
)

// DefaultPolicies returns the built-in policy set.
func DefaultPolicies() []Policy {
	names := []string{
		PolicySearch, PolicyCreatePost, PolicyLikePost, PolicyUnlikePost,
		PolicyBookmarkPost, PolicyUnbookmarkPost, PolicyAddComment,
		PolicyAddFavorite, PolicyFollowUser,
	}
	policies := make([]Policy, 0, len(names))
	for _, n := range names {
		policies = append(policies, Policy{Name: n, Limit: DefaultLimit, Window: DefaultWindow})
	}
	return policies
}

// Registry holds one Limiter per named policy over a shared backend.
type Registry struct {
	limiters map[string]*Limiter
}

// NewRegistry builds limiters for policies. A later policy with the same name
// replaces an earlier one.
func NewRegistry(backend Backend, policies []Policy, opts ...Option) (*Registry, error) {
	r := &Registry{limiters: make(map[string]*Limiter, len(policies))}
	for _, p := range policies {
		l, err := NewLimiter(backend, p, opts...)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", p.Name, err)
		}
		r.limiters[p.Name] = l
	}
	return r, nil
}

// Limiter returns the limiter for a policy.
func (r *Registry) Limiter(policy string) (*Limiter, bool) {
	l, ok := r.limiters[policy]
	return l, ok
}

// Policies lists the registered policy names, sorted.
func (r *Registry) Policies() []string {
	names := make([]string, 0, len(r.limiters))
	for n := range r.limiters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check counts one request against policy. Unknown policies are allowed.
func (r *Registry) Check(ctx context.Context, policy, identifier string) Decision {
	l, ok := r.limiters[policy]
	if !ok {
		logger := log.Ctx(ctx)
		logger.Warn().Str(log.FieldPolicy, policy).Msg("unknown rate limit policy, allowing")
		return Decision{Allowed: true}
	}
	return l.Check(ctx, identifier)
}

// Info reports quota for policy without consuming it.
func (r *Registry) Info(ctx context.Context, policy, identifier string) (Decision, bool) {
	l, ok := r.limiters[policy]
	if !ok {
		return Decision{}, false
	}
	return l.Info(ctx, identifier), true
}
