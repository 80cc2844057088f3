package http

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/identity"
	"github.com/sujalbistaa/whisperwall/internal/models"
)

// KeyHeader carries the caller's opaque access key.
const KeyHeader = "X-Whisper-Key"

const identityContextKey = "identity"

// KeyAuthMiddleware resolves the access key into an Identity and stashes
// it in the context. Malformed or missing keys are rejected before any
// lookup, so a bad key never creates an Identity. Banned identities still
// pass through here; ShadowBanMiddleware degrades their writes.
func KeyAuthMiddleware(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(KeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing access key"})
			return
		}
		ident, err := resolver.Resolve(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, identity.ErrMalformedKey) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Malformed access key"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve identity"})
			return
		}
		c.Set(identityContextKey, ident)
		c.Next()
	}
}

// currentIdentity returns the Identity resolved by KeyAuthMiddleware.
func currentIdentity(c *gin.Context) *models.Identity {
	ident, _ := c.Get(identityContextKey)
	resolved, _ := ident.(*models.Identity)
	return resolved
}

// ShadowBanMiddleware short-circuits writes from banned identities with a
// success-shaped response. The mutation never reaches the store; the
// caller cannot tell they are banned from the response alone.
func ShadowBanMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := currentIdentity(c)
		if ident != nil && ident.Banned {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{"message": "ok"})
			return
		}
		c.Next()
	}
}

// AdminAuthMiddleware checks for a secret X-Admin-Token header.
func AdminAuthMiddleware() gin.HandlerFunc {
	// We read this once when the middleware is initialized.
	requiredToken := os.Getenv("X_ADMIN_TOKEN")

	// If no token is set in the environment, we must fail closed.
	if requiredToken == "" {
		panic("CRITICAL: X_ADMIN_TOKEN environment variable not set.")
	}

	return func(c *gin.Context) {
		suppliedToken := c.GetHeader("X-Admin-Token")

		if suppliedToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Admin token required"})
			return
		}

		if suppliedToken != requiredToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Invalid admin token"})
			return
		}

		c.Next()
	}
}

// SecurityHeadersMiddleware adds basic, sensible security headers.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevents clickjacking
		c.Header("X-Frame-Options", "DENY")
		// Prevents MIME-type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// 'unsafe-inline' and the CDNs are needed by the static frontend.
		csp := "default-src 'self';"
		csp += " script-src 'self' 'unsafe-inline' cdn.jsdelivr.net;"
		csp += " style-src 'self' 'unsafe-inline' cdn.tailwindcss.com;"
		c.Header("Content-Security-Policy", csp)

		c.Next()
	}
}
