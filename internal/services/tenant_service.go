package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"vitrina/internal/caching"
	"vitrina/internal/common"
	"vitrina/internal/config"
	"vitrina/internal/errs"
	"vitrina/internal/models"
	"vitrina/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sessionTTL = 2 * time.Hour

var repoNameSanitizer = regexp.MustCompile(`[^a-z0-9-]`)

// TenantService owns tenant accounts: admin credentials, the per-tenant
// pages repository name, the stored style config, and the wizard session
// snapshots built from them.
type TenantService interface {
	CreateAdmin(ctx context.Context, accountKey, adminKey string) error
	Login(ctx context.Context, accountKey, adminKey string) (string, error)
	SaveStyle(ctx context.Context, accountKey string, style *models.StyleConfig) error
	EnsureRepoName(ctx context.Context, accountKey string) (string, error)
	StartSession(ctx context.Context, accountKey string, style *models.StyleConfig) (string, *models.SessionContext, error)
	GetSession(ctx context.Context, sessionID string) (*models.SessionContext, error)
	BuildSessionContext(ctx context.Context, accountKey string) (*models.SessionContext, error)
}

type tenantService struct {
	tenantRepo   repositories.TenantRepository
	cacheService caching.CacheService
	jwtCfg       config.JWTConfig
	branch       string
	logger       *zap.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, cacheService caching.CacheService, jwtCfg config.JWTConfig, branch string, logger *zap.Logger) TenantService {
	return &tenantService{
		tenantRepo:   tenantRepo,
		cacheService: cacheService,
		jwtCfg:       jwtCfg,
		branch:       branch,
		logger:       logger,
	}
}

// CreateAdmin stores a bcrypt hash of the admin key for the account,
// creating the tenant row if it does not exist yet.
func (s *tenantService) CreateAdmin(ctx context.Context, accountKey, adminKey string) error {
	key, err := common.ValidateAccountKey(accountKey)
	if err != nil {
		return err
	}
	if strings.TrimSpace(adminKey) == "" {
		return errs.Validation("admin key is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.tenantRepo.Upsert(ctx, &models.Tenant{AccountKey: key, AdminKeyHash: string(hash)}); err != nil {
		return err
	}
	s.logger.Info("admin credentials set", zap.String("account_key", key))
	return nil
}

// Login checks the admin key and returns a signed access token whose subject
// is the account key.
func (s *tenantService) Login(ctx context.Context, accountKey, adminKey string) (string, error) {
	key, err := common.ValidateAccountKey(accountKey)
	if err != nil {
		return "", err
	}

	tenant, err := s.tenantRepo.GetByAccountKey(ctx, key)
	if err != nil {
		return "", err
	}
	if tenant.AdminKeyHash == "" {
		return "", errs.NotFound("no admin credentials for %s", key)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.AdminKeyHash), []byte(adminKey)); err != nil {
		return "", errs.Validation("invalid admin key")
	}

	if s.jwtCfg.Secret == "" {
		return "", errs.Config("JWT_SECRET is not set")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": key,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(s.jwtCfg.AccessExpiry) * time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", err
	}

	s.logger.Info("admin login", zap.String("account_key", key))
	return signed, nil
}

func (s *tenantService) SaveStyle(ctx context.Context, accountKey string, style *models.StyleConfig) error {
	if style == nil {
		return errs.Validation("style is required")
	}
	return s.tenantRepo.SetStyle(ctx, accountKey, style)
}

// EnsureRepoName returns the tenant's pages repo name, generating and
// persisting one on first use. The name embeds a sanitized slice of the
// account key plus a random suffix so two tenants can never collide.
func (s *tenantService) EnsureRepoName(ctx context.Context, accountKey string) (string, error) {
	tenant, err := s.tenantRepo.GetByAccountKey(ctx, accountKey)
	if err != nil {
		return "", err
	}
	if tenant.RepoName != "" {
		return tenant.RepoName, nil
	}

	name, err := GenerateRepoName(accountKey)
	if err != nil {
		return "", err
	}
	if err := s.tenantRepo.SetRepoName(ctx, accountKey, name); err != nil {
		return "", err
	}
	s.logger.Info("repo name assigned", zap.String("account_key", accountKey), zap.String("repo", name))
	return name, nil
}

// StartSession persists the chosen style, ensures the tenant has a repo name,
// and caches the resulting read-only session snapshot under a fresh id.
func (s *tenantService) StartSession(ctx context.Context, accountKey string, style *models.StyleConfig) (string, *models.SessionContext, error) {
	key, err := common.ValidateAccountKey(accountKey)
	if err != nil {
		return "", nil, err
	}

	// First wizard run for a brand-new account creates the tenant row.
	if _, err := s.tenantRepo.GetByAccountKey(ctx, key); errs.IsNotFound(err) {
		if err := s.tenantRepo.Upsert(ctx, &models.Tenant{AccountKey: key}); err != nil {
			return "", nil, err
		}
	} else if err != nil {
		return "", nil, err
	}

	if style != nil {
		if err := s.tenantRepo.SetStyle(ctx, key, style); err != nil {
			return "", nil, err
		}
	}

	session, err := s.BuildSessionContext(ctx, key)
	if err != nil {
		return "", nil, err
	}

	sessionID, err := gonanoid.New()
	if err != nil {
		return "", nil, err
	}
	if err := s.cacheService.SetSession(ctx, sessionID, session, sessionTTL); err != nil {
		return "", nil, err
	}

	s.logger.Info("wizard session started", zap.String("account_key", key), zap.String("session_id", sessionID))
	return sessionID, session, nil
}

func (s *tenantService) GetSession(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	session, err := s.cacheService.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errs.NotFound("session %s", sessionID)
	}
	return session, nil
}

// BuildSessionContext assembles the snapshot the pipeline reads: account key,
// stored style, repo name and publish branch.
func (s *tenantService) BuildSessionContext(ctx context.Context, accountKey string) (*models.SessionContext, error) {
	repoName, err := s.EnsureRepoName(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	style, err := s.tenantRepo.GetStyle(ctx, accountKey)
	if err != nil {
		return nil, err
	}

	return &models.SessionContext{
		AccountKey: accountKey,
		Style:      *style,
		RepoName:   repoName,
		Branch:     s.branch,
	}, nil
}

// GenerateRepoName derives a host-safe repository name from the account key.
func GenerateRepoName(accountKey string) (string, error) {
	local := accountKey
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	local = repoNameSanitizer.ReplaceAllString(strings.ToLower(local), "-")
	local = strings.Trim(local, "-")
	if len(local) > 20 {
		local = local[:20]
	}
	if local == "" {
		local = "tenant"
	}

	suffix, err := gonanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 6)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("catalog-%s-%s", local, suffix), nil
}
