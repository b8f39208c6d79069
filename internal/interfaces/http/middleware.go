package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/expenseflow/backend/internal/domain/entity"
)

// Identity is the authenticated caller extracted from the bearer token.
// Token issuance belongs to the external auth collaborator; this layer only
// verifies and reads the claims.
type Identity struct {
	UserID    string
	CompanyID string
	Role      entity.Role
}

type claims struct {
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

const identityKey = "identity"

// AuthRequired verifies the Authorization bearer token and stores the
// caller's identity on the request context
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		var cl claims
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			&cl,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			},
		)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid token",
			})
			return
		}

		role := entity.Role(cl.Role)
		if cl.Subject == "" || cl.CompanyID == "" || !role.IsValid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "incomplete token claims",
			})
			return
		}

		c.Set(identityKey, Identity{
			UserID:    cl.Subject,
			CompanyID: cl.CompanyID,
			Role:      role,
		})
		c.Next()
	}
}

// AdminRequired restricts a route group to admins
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identityFrom(c).Role != entity.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "admin role required",
			})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Identity{}
}
