package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	auditdomain "github.com/stablehq/paddock/internal/audit/domain"
	"github.com/stablehq/paddock/internal/auditcontext"
	"github.com/stablehq/paddock/internal/auth/password"
	identitydomain "github.com/stablehq/paddock/internal/identity/domain"
)

const contextUserKey = "current_user"

type authClaims struct {
	Roles string `json:"roles"`
	jwt.RegisteredClaims
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		AbortWithError(c, newValidationError("email", "required", "email and password are required"))
		return
	}
	if !s.loginLimiter.Allow(c.ClientIP() + "|" + email) {
		AbortWithError(c, ErrRateLimited)
		return
	}

	user, err := s.users.FindByEmail(c.Request.Context(), s.db, email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if user == nil || user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	now := s.clk.Now()
	claims := authClaims{
		Roles: user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token": token,
		"user":  user,
	}})
}

// AuthRequired authenticates requests with a Bearer JWT and loads the account
// into the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := snowflake.ParseString(claims.Subject)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		user, err := s.users.FindByID(c.Request.Context(), s.db, userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if user == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserKey, user)

		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeUser), user.ID.String())
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())
		if requestID := c.GetString("request_id"); requestID != "" {
			ctx = auditcontext.WithRequestID(ctx, requestID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole gates a route group to accounts carrying the role.
func (s *Server) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if !user.HasRole(role) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) currentUser(c *gin.Context) (*identitydomain.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*identitydomain.User)
	return user, ok
}
