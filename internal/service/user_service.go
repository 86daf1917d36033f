package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"matesl-go/internal/model"
	"matesl-go/internal/repository"
	"matesl-go/pkg/hash"
	"matesl-go/pkg/log"
	"matesl-go/pkg/token"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// 用户服务的错误
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

const minPasswordLength = 6

// BlacklistKey 返回登出 token 在 Redis 中的键。
func BlacklistKey(tokenString string) string {
	return "blacklist:" + tokenString
}

// TokenPair 是登录或刷新后签发的一对 token。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ProfileUpdate 是用户可修改的资料，nil 表示不修改。
type ProfileUpdate struct {
	Name              *string         `json:"name"`
	PreferredLanguage *model.Language `json:"preferredLanguage"`
}

// UserService 接口定义了所有与用户相关的业务操作。
type UserService interface {
	Register(email, name, password string, lang model.Language) (*model.User, error)
	Login(email, password string) (*model.User, *TokenPair, error)
	Logout(ctx context.Context, tokenString string) error
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
	RefreshToken(refreshTokenString string) (*TokenPair, error)
	GetProfile(userID uint) (*model.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error)
	ChangePassword(userID uint, oldPassword, newPassword string) error
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
	rdb        *redis.Client
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager, rdb *redis.Client) UserService {
	return &userService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		rdb:        rdb,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(email, name, password string, lang model.Language) (*model.User, error) {
	// 1. 校验输入
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, ErrInvalidEmail
	}
	email = strings.ToLower(addr.Address)
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	if lang == "" {
		lang = model.LanguageEN
	}

	// 2. 检查邮箱是否已注册
	_, err = s.userRepo.FindByEmail(email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 3. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 4. 创建用户，默认角色为 CITIZEN
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user := &model.User{
		Email:             email,
		Name:              strings.TrimSpace(name),
		Password:          hashedPassword,
		Role:              model.RoleCitizen,
		PreferredLanguage: lang,
		IsActive:          true,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		log.Errorf("[UserService] 创建用户失败, email: %s, error: %v", email, err)
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	log.Infof("[UserService] 用户注册成功, id: %d", user.ID)
	return user, nil
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(email, password string) (*model.User, *TokenPair, error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	// 3. 生成 access token 和 refresh token
	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *userService) issue(user *model.User) (*TokenPair, error) {
	access, err := s.jwtManager.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout 处理用户登出逻辑，将 token 加入 Redis 黑名单。
// token 的剩余有效期将作为 Redis key 的过期时间。
func (s *userService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return err
	}
	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, BlacklistKey(tokenString), "true", expiration).Err()
}

// IsTokenRevoked 判断 token 是否已登出。
func (s *userService) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	n, err := s.rdb.Exists(ctx, BlacklistKey(tokenString)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RefreshToken 验证 refresh token 并签发新的 access token 和 refresh token。
func (s *userService) RefreshToken(refreshTokenString string) (*TokenPair, error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshTokenString)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return s.issue(user)
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile 修改姓名或首选语言。
func (s *userService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.PreferredLanguage != nil {
		lang, ok := model.ParseLanguage(string(*update.PreferredLanguage))
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", *update.PreferredLanguage)
		}
		user.PreferredLanguage = lang
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword 校验旧密码后设置新密码。
func (s *userService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetProfile(userID)
	if err != nil {
		return err
	}
	if !hash.CheckPasswordHash(oldPassword, user.Password) {
		return ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	hashed, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.userRepo.Update(user)
}
