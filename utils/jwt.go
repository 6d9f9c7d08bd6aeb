package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"groclist/config"
	"groclist/models"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type Claims struct {
	UserID       uint `json:"user_id"`
	TokenVersion int  `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWTToken issues an access token and a stored, revocable refresh
// token for the user.
func GenerateJWTToken(user *models.User, userAgent, ip string) (string, string, error) {
	accessClaims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", "", err
	}

	refreshTokenString, err := GenerateSecureToken()
	if err != nil {
		return "", "", err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		UserAgent: userAgent,
		IPAddress: ip,
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
	}
	if err := config.DB.Create(&record).Error; err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// RefreshTokens rotates a refresh token: the presented token is revoked and
// a fresh access/refresh pair is issued.
func RefreshTokens(refreshToken, userAgent, ip string) (string, string, error) {
	var record models.RefreshToken
	if err := config.DB.Where("token = ?", refreshToken).First(&record).Error; err != nil {
		return "", "", errors.New("refresh token not found")
	}

	if record.IsRevoked {
		return "", "", errors.New("refresh token revoked")
	}
	if time.Now().After(record.ExpiresAt) {
		return "", "", errors.New("refresh token expired")
	}

	var user models.User
	if err := config.DB.First(&user, record.UserID).Error; err != nil {
		return "", "", errors.New("user not found")
	}

	if err := config.DB.Model(&record).Update("is_revoked", true).Error; err != nil {
		return "", "", err
	}

	return GenerateJWTToken(&user, userAgent, ip)
}

// RevokeRefreshToken marks a stored refresh token as revoked. Unknown tokens
// are ignored so logout stays idempotent.
func RevokeRefreshToken(refreshToken string) error {
	return config.DB.Model(&models.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", refreshToken, false).
		Update("is_revoked", true).Error
}
