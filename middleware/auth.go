package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	c "ticketing-backend/context"
	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/response"
)

type claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.StandardClaims
}

// SignToken issues an HS256 bearer token for id valid for ttl.
func SignToken(secret string, id *model.Identity, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		Phone:    id.Phone,
		Role:     id.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	})
	return token.SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*model.Identity, error) {
	cl := &claims{}
	token, err := jwt.ParseWithClaims(raw, cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || cl.UserID <= 0 {
		return nil, fmt.Errorf("parseToken: token carries no user")
	}

	role := cl.Role
	if role == "" {
		role = model.RoleUser
	}
	return &model.Identity{
		UserID:   cl.UserID,
		Username: cl.Username,
		Email:    cl.Email,
		Phone:    cl.Phone,
		Role:     role,
	}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity on the request context.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				response.Unauthorized().Send(r.Context(), w)
				return
			}

			id, err := parseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Infof(r.Context(), "Authenticate: rejected token: %v", err)
				response.Unauthorized().Send(r.Context(), w)
				return
			}

			next.ServeHTTP(w, r.WithContext(c.SetIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets through authenticated callers holding one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := c.GetIdentity(r.Context())
			if !ok {
				response.Unauthorized().Send(r.Context(), w)
				return
			}
			if !id.HasRole(roles...) {
				response.Forbidden(fmt.Sprintf("role %s may not access %s", id.Role, r.URL.Path)).Send(r.Context(), w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
