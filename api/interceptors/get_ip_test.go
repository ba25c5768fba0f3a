package interceptors

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithHeaders(remoteAddr string, headers map[string]string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/v0/prove", nil)
	c.Request.RemoteAddr = remoteAddr
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	return c
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"peer address", nil, "192.0.2.10"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"cloudfront proto is not an address", map[string]string{"CloudFront-Forwarded-Proto": "https"}, "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, err := clientIP(contextWithHeaders("192.0.2.10:51234", tt.headers))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ip)
		})
	}

	_, err := clientIP(contextWithHeaders("not-an-address", nil))
	assert.Error(t, err)
}
