package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	rolePrefix       = "ROLE_"
	permCacheKey     = "perm:role:"
	permLookupBudget = 3 * time.Second
)

// PermissionStore resolves the active permission codes linked to a role.
type PermissionStore interface {
	ActivePermissionCodesByRole(ctx context.Context, roleCode string) ([]string, error)
}

// PermissionService turns a role code into the live authority set for one
// request: the role's base authority plus every active permission code
// currently linked to it. A nil cache or a zero TTL keeps every read fresh
// so revocation propagates on the next request.
type PermissionService struct {
	store PermissionStore
	cache *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

func NewPermissionService(store PermissionStore, cache *redis.Client, ttl time.Duration, log zerolog.Logger) *PermissionService {
	return &PermissionService{
		store: store,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// BaseAuthority is the authority every principal of a role holds regardless
// of permission assignments.
func BaseAuthority(roleCode string) string {
	return rolePrefix + strings.ToUpper(roleCode)
}

// Authorities resolves the authority set for roleCode. When the permission
// store is unavailable the request degrades to the base authority alone
// rather than failing: a deliberate fail-open on this lookup only, logged so
// outages are visible.
func (s *PermissionService) Authorities(ctx context.Context, roleCode string) []string {
	authorities := []string{BaseAuthority(roleCode)}

	codes, err := s.permissionCodes(ctx, roleCode)
	if err != nil {
		s.log.Warn().Err(err).Str("role", roleCode).Msg("permission lookup failed, degrading to base role")
		return authorities
	}
	return append(authorities, codes...)
}

func (s *PermissionService) permissionCodes(ctx context.Context, roleCode string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, permLookupBudget)
	defer cancel()

	key := permCacheKey + roleCode

	if s.cacheEnabled() {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			if cached == "" {
				return nil, nil
			}
			return strings.Split(cached, ","), nil
		}
	}

	codes, err := s.store.ActivePermissionCodesByRole(ctx, roleCode)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, strings.Join(codes, ","), s.ttl).Err(); err != nil {
			s.log.Debug().Err(err).Str("role", roleCode).Msg("permission cache set failed")
		}
	}
	return codes, nil
}

func (s *PermissionService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}
