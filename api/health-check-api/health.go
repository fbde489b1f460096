// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vocalbridge/vocalbridge/config"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

type HealthCheckApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
}

func New(cfg *config.AppConfig, logger commons.Logger) *HealthCheckApi {
	return &HealthCheckApi{cfg: cfg, logger: logger}
}

// Healthz reports process liveness.
func (a *HealthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness reports whether the service can take calls. There are no
// upstream connections held open between calls, so readiness follows
// liveness plus the presence of a usable configuration.
func (a *HealthCheckApi) Readiness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": a.cfg.Name,
		"version": a.cfg.Version,
	})
}
