package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAuth enforces service-to-service authentication on internal
// endpoints. The bearer credential is either the shared service token or,
// when jwtSecret is set, an HMAC-signed JWT minted by a peer service.
func ServiceAuth(serviceToken, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if serviceToken == "" && jwtSecret == "" {
				http.Error(w, "service auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			credential := strings.TrimPrefix(auth, "Bearer ")

			if serviceToken != "" &&
				subtle.ConstantTimeCompare([]byte(credential), []byte(serviceToken)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if jwtSecret != "" && validServiceJWT(credential, jwtSecret) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "invalid service credential", http.StatusUnauthorized)
		})
	}
}

func validServiceJWT(tokenString, secret string) bool {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	return err == nil && token.Valid
}
