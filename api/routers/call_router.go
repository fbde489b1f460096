// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package call_routers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	callApi "github.com/vocalbridge/vocalbridge/api/call-api"
	healthCheckApi "github.com/vocalbridge/vocalbridge/api/health-check-api"
	"github.com/vocalbridge/vocalbridge/config"
	internal_bridge "github.com/vocalbridge/vocalbridge/internal/bridge"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

func CallApiRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, bridge *internal_bridge.Bridge) {
	api := callApi.NewCallApi(cfg, logger, bridge)
	root := engine.Group("")
	{
		root.GET("/incoming-call", api.IncomingCall)
		root.POST("/incoming-call", api.IncomingCall)
		root.GET("/media-stream", api.MediaStream)
		root.POST("/call-status", api.CallStatus)
	}
}

func HealthCheckRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger) {
	logger.Info("HealthCheckRoutes added to engine.")
	api := healthCheckApi.New(cfg, logger)
	root := engine.Group("")
	{
		root.GET("/healthz", api.Healthz)
		root.GET("/readiness", api.Readiness)
	}
}

func MetricsRoutes(engine *gin.Engine) {
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
