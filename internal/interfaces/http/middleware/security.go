// internal/interfaces/http/middleware/security.go
package middleware

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the response hardening headers. The payment
// widget's origin is allowed to load scripts and frames; everything else
// is same-origin. Responses default to no-store since carts are per
// session; handlers serving static assets override Cache-Control.
func SecurityHeaders(serverName, widgetScriptURL string) gin.HandlerFunc {
	csp := contentSecurityPolicy(widgetOrigin(widgetScriptURL))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", csp)
		h.Set("Cache-Control", "no-store")
		if serverName != "" {
			h.Set("Server", serverName)
		}
		c.Next()
	}
}

func widgetOrigin(scriptURL string) string {
	u, err := url.Parse(scriptURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func contentSecurityPolicy(widget string) string {
	directives := []string{"default-src 'self'"}
	if widget != "" {
		directives = append(directives,
			"script-src 'self' "+widget,
			"frame-src "+widget,
			"connect-src 'self' "+widget,
		)
	}
	return strings.Join(directives, "; ")
}
