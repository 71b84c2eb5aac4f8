package service

import (
	"errors"
	"time"

	"github.com/lingxian-next/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 登录凭证无效
var ErrTokenInvalid = errors.New("token invalid")

// UserJWTClaims 用户端 JWT 载荷
type UserJWTClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// AdminJWTClaims 管理端 JWT 载荷，权限由 casbin 按 admin_id 判定
type AdminJWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func registeredClaims(cfg config.JWTConfig, now time.Time) (jwt.RegisteredClaims, time.Time) {
	hours := cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}, expiresAt
}

// GenerateUserJWT 签发用户 Token
func GenerateUserJWT(cfg config.JWTConfig, userID uint) (string, time.Time, error) {
	if userID == 0 || cfg.SecretKey == "" {
		return "", time.Time{}, ErrTokenInvalid
	}
	registered, expiresAt := registeredClaims(cfg, time.Now())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, UserJWTClaims{
		UserID:           userID,
		RegisteredClaims: registered,
	})
	signed, err := token.SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateAdminJWT 签发管理员 Token
func GenerateAdminJWT(cfg config.JWTConfig, adminID uint, username string) (string, time.Time, error) {
	if adminID == 0 || cfg.SecretKey == "" {
		return "", time.Time{}, ErrTokenInvalid
	}
	registered, expiresAt := registeredClaims(cfg, time.Now())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminJWTClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registered,
	})
	signed, err := token.SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseUserJWT 解析用户 Token
func ParseUserJWT(secret, tokenString string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseAdminJWT 解析管理员 Token
func ParseAdminJWT(secret, tokenString string) (*AdminJWTClaims, error) {
	claims := &AdminJWTClaims{}
	if err := parseHS256(secret, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func parseHS256(secret, tokenString string, claims jwt.Claims) error {
	if secret == "" || tokenString == "" {
		return ErrTokenInvalid
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return errors.Join(ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
