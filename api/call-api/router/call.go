// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package call_routers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	call_api "github.com/rapidaai/outreach/api/call-api/api"
	"github.com/rapidaai/outreach/config"
	"github.com/rapidaai/outreach/pkg/commons"
)

// CallRoutes mounts the outbound-call endpoints on the engine.
func CallRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, launcher call_api.Launcher) {
	logger.Info("call routes added to engine")

	// Allow-all CORS for the operator frontend.
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: false,
	}))

	callApi := call_api.New(cfg, logger, launcher)
	engine.GET("/", callApi.Banner)
	apiv1 := engine.Group("api")
	{
		apiv1.POST("/launch-call", callApi.LaunchCall)
		apiv1.GET("/health", callApi.Health)
	}
}
