package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthCheckAPI struct {
}

func NewHealthCheckAPI() *HealthCheckAPI {
	return &HealthCheckAPI{}
}

// HealthCheck answers once the server runs, which happens only after the key cache is populated
func (ha *HealthCheckAPI) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
