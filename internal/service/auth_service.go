package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaopredial/patrimonio/internal/auth"
	"github.com/gestaopredial/patrimonio/internal/profile"
	"github.com/gestaopredial/patrimonio/internal/util"
)

// AudienceApp é o único público dos tokens emitidos pela API.
const AudienceApp = "app"

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type authRepository interface {
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
	InsertRefreshToken(ctx context.Context, token profile.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*profile.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(repo authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: repo, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Role          string
	States        []string
	Profile       *profile.Profile
	RefreshExpiry time.Time
}

// Login autentica por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.SenhaHash)
	if err != nil {
		log.Warn().Err(err).Msg("login: verificação de senha falhou")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		log.Warn().Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// Refresh troca um refresh token válido por nova sessão. O token usado
// é rotacionado: as demais sessões do sujeito são revogadas.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if rawToken == "" {
		return nil, ErrRefreshInvalid
	}

	hash := auth.HashRefreshToken(rawToken)
	record, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if record.Revogado || util.Now().After(record.Expiracao) {
		return nil, ErrRefreshInvalid
	}

	status, err := s.redis.Get(ctx, auth.RefreshRedisKey(hash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if status != "active" {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetByID(ctx, record.Subject)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			// Perfil removido: sessão morre junto.
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Msg("refresh: limpeza da chave antiga falhou")
	}
	return result, nil
}

// Logout revoga o refresh token da sessão corrente.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := auth.HashRefreshToken(rawToken)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil && !errors.Is(err, profile.ErrNotFound) {
		return err
	}
	if err := s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// GetMe devolve o perfil do sujeito autenticado.
func (s *AuthService) GetMe(ctx context.Context, subject uuid.UUID) (*profile.Profile, error) {
	return s.repo.GetByID(ctx, subject)
}

func (s *AuthService) issueSession(ctx context.Context, user *profile.Profile) (*LoginResult, error) {
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	access, _, err := s.jwt.GenerateAccessToken(user.ID.String(), AudienceApp, user.Role, user.States)
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expires := util.Now().Add(s.refreshTTL)
	if err := s.persistRefresh(ctx, user.ID, refreshHash, expires); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		Role:          user.Role,
		States:        user.States,
		Profile:       user,
		RefreshExpiry: expires,
	}, nil
}

func (s *AuthService) persistRefresh(ctx context.Context, subject uuid.UUID, hash string, expires time.Time) error {
	err := s.repo.InsertRefreshToken(ctx, profile.RefreshToken{
		ID:        uuid.New(),
		Subject:   subject,
		TokenHash: hash,
		Expiracao: expires,
		CriadoEm:  util.Now(),
	})
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, subject, hash); err != nil {
		return err
	}

	return s.redis.Set(ctx, auth.RefreshRedisKey(hash), "active", time.Until(expires)).Err()
}
