package interceptors

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIP prefers the address reported by a fronting proxy over the peer address
func clientIP(c *gin.Context) (string, error) {
	if ip := strings.TrimSpace(c.Request.Header.Get("X-Real-IP")); ip != "" {
		return ip, nil
	}
	if fwd := c.Request.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip, nil
		}
	}
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return "", err
	}
	return ip, nil
}
