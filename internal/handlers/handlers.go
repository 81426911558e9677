package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"plancore/api/internal/config"
	"plancore/api/internal/middleware"
	"plancore/api/internal/models"
	"plancore/api/internal/repository"
	"plancore/api/internal/service"
)

// UserDirectory is the administrative surface over the credential store.
type UserDirectory interface {
	List(ctx context.Context, limit int, offset int) ([]models.User, error)
	Unlock(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// RoleDirectory manages roles and their permission assignments.
type RoleDirectory interface {
	List(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, role models.Role) error
	Update(ctx context.Context, role models.Role) error
	Delete(ctx context.Context, id string) error
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	PermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error)
}

// LoginLogReader pages through the audit trail.
type LoginLogReader interface {
	List(ctx context.Context, limit int, offset int) ([]models.LoginLog, error)
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	perms       *service.PermissionService
	db          *pgxpool.Pool
	cache       *redis.Client
	users       UserDirectory
	roles       RoleDirectory
	loginLogs   LoginLogReader
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	logRepo := repository.NewLoginLogRepository(db)

	auth := service.NewAuthService(userRepo, logRepo, cfg, log)
	perms := service.NewPermissionService(roleRepo, cache, cfg.Security.PermissionCacheTTL, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		perms:       perms,
		db:          db,
		cache:       cache,
		users:       userRepo,
		roles:       roleRepo,
		loginLogs:   logRepo,
	}
}

// PermissionService exposes the resolver for the middleware chain.
func (h HandlerSet) PermissionService() *service.PermissionService {
	return h.perms
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/login", h.Login)
	auth.GET("/me", middleware.RequireAuthenticated(), h.Me)

	admin := router.Group("/admin")
	{
		admin.GET("/users", middleware.RequirePermission(PermUserView), h.ListUsers)
		admin.POST("/users/:id/unlock", middleware.RequirePermission(PermUserManage), h.UnlockUser)
		admin.POST("/users/:id/activate", middleware.RequirePermission(PermUserManage), h.ActivateUser)
		admin.POST("/users/:id/deactivate", middleware.RequirePermission(PermUserManage), h.DeactivateUser)

		admin.GET("/roles", middleware.RequirePermission(PermRoleView), h.ListRoles)
		admin.POST("/roles", middleware.RequirePermission(PermRoleManage), h.CreateRole)
		admin.PUT("/roles/:id", middleware.RequirePermission(PermRoleManage), h.UpdateRole)
		admin.DELETE("/roles/:id", middleware.RequirePermission(PermRoleManage), h.DeleteRole)
		admin.PUT("/roles/:id/permissions", middleware.RequirePermission(PermRoleManage), h.ReplaceRolePermissions)
		admin.GET("/permissions", middleware.RequirePermission(PermRoleView), h.ListPermissions)

		admin.GET("/login-logs", middleware.RequirePermission(PermAuditView), h.ListLoginLogs)
	}
}

// Permission codes guarding the administrative routes.
const (
	PermUserView   = "user.view"
	PermUserManage = "user.manage"
	PermRoleView   = "role.view"
	PermRoleManage = "role.manage"
	PermAuditView  = "audit.view"
)
