package middleware

import (
	"fmt"
	"strconv"
	"time"

	"anycastweb/config"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateTokens 签发访问令牌和刷新令牌，subject为用户ID
func GenerateTokens(cfg *config.JWTConfig, userID uint) (string, string, error) {
	access, err := signToken(cfg, userID, TokenAccess, time.Duration(cfg.AccessMinutes)*time.Minute)
	if err != nil {
		return "", "", err
	}
	refresh, err := signToken(cfg, userID, TokenRefresh, time.Duration(cfg.RefreshMinutes)*time.Minute)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func signToken(cfg *config.JWTConfig, userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken 校验令牌签名、有效期和类型，返回用户ID
func ParseToken(cfg *config.JWTConfig, tokenString, wantType string) (uint, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("签名算法不支持: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("令牌无效: %w", err)
	}
	if claims.Type != wantType {
		return 0, fmt.Errorf("令牌类型错误: %s", claims.Type)
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("令牌subject无效: %w", err)
	}
	return uint(userID), nil
}
