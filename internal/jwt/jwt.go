package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// TokenType Token 类型
type TokenType string

const (
	AccessToken TokenType = "access"
)

// Claims JWT 声明
type Claims struct {
	UserID    int64     `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Service JWT 服务
// 牌局服务只需要从 Access Token 中得到不透明的 UserId；签发用于机器人与测试
type Service struct {
	secretKey    []byte
	accessExpire time.Duration
	issuer       string
	parser       *jwt.Parser
}

// NewService 创建 JWT 服务
func NewService(secretKey string, accessExpire time.Duration, issuer string) *Service {
	return &Service{
		secretKey:    []byte(secretKey),
		accessExpire: accessExpire,
		issuer:       issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// GenerateAccessToken 签发 Access Token
func (s *Service) GenerateAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenType: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateAccessToken 验证 Access Token
// 只接受 HS256、本服务签发且带过期时间的 Access Token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secretKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	case claims.TokenType != AccessToken, claims.UserID <= 0:
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// CurrentUser 解析 Token 得到 UserId
func (s *Service) CurrentUser(tokenString string) (int64, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// ExtractBearer 从 Authorization header 提取 token
func ExtractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
