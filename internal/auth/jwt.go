package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 72 * time.Hour

// Claims is what we carry inside a token: the user id and the account kind,
// so role checks never need a database round trip.
type Claims struct {
	UserID   int64
	UserType string
}

func secretKey() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	// Development fallback only; main refuses to start without JWT_SECRET
	// when GIN_MODE is release.
	return []byte("tradelink-dev-secret")
}

// GenerateToken issues a signed HS256 token for the given user.
func GenerateToken(userID int64, userType string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": userType,
		"exp": time.Now().Add(tokenLifetime).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses a token string and returns its claims.
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	// JSON numbers decode as float64.
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, errors.New("invalid subject claim")
	}
	typ, ok := claims["typ"].(string)
	if !ok {
		return nil, errors.New("invalid type claim")
	}

	return &Claims{UserID: int64(sub), UserType: typ}, nil
}
