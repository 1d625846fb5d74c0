package staff

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Lelo88/nova-catalog-golang/internal/httpx"
)

// TokenCost es el costo bcrypt para hashear tokens de staff.
const TokenCost = 12

// HashToken genera el hash bcrypt que se configura en STAFF_TOKEN_HASH.
func HashToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), TokenCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// TokenGuard devuelve un middleware que exige "Authorization: Bearer <token>"
// y lo verifica contra hash. Con hash vacío devuelve nil: las rutas quedan abiertas.
func TokenGuard(hash string, logger logrus.FieldLogger) (func(http.Handler) http.Handler, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid STAFF_TOKEN_HASH: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get("Authorization")
			if header == "" {
				httpx.Fail(writer, request, http.StatusUnauthorized, "unauthorized", "missing authorization header")
				return
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				httpx.Fail(writer, request, http.StatusUnauthorized, "unauthorized", "invalid authorization scheme")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(token))); err != nil {
				logger.WithFields(logrus.Fields{
					"path":       request.URL.Path,
					"request_id": httpx.RequestIDFrom(request),
				}).Warn("staff request with invalid token")
				httpx.Fail(writer, request, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}, nil
}
