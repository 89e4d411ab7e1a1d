// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package call_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	internal_dispatch "github.com/rapidaai/outreach/api/call-api/internal/dispatch"
	internal_livekit "github.com/rapidaai/outreach/api/call-api/internal/livekit"
	"github.com/rapidaai/outreach/config"
	"github.com/rapidaai/outreach/pkg/commons"
)

// Launcher is the dispatch operation the HTTP layer exposes.
type Launcher interface {
	Launch(ctx context.Context, req internal_dispatch.LaunchRequest) (roomName, jobId string, err error)
}

// LaunchCallRequest is the inbound launch payload.
type LaunchCallRequest struct {
	ParticipantName    string `json:"participant_name" binding:"required"`
	ParticipantContext string `json:"participant_context" binding:"required"`
	PhoneNumber        string `json:"phone_number" binding:"required"`

	TrialName        string `json:"trial_name"`
	TrialDescription string `json:"trial_description"`
	CompensationInfo string `json:"compensation_info"`
	ContactInfo      string `json:"contact_info"`

	SipTrunkId string `json:"sip_trunk_id"`
	CallerId   string `json:"caller_id"`
}

// LaunchCallResponse reports whether the call was launched. The call's
// eventual outcome is observed asynchronously via the contact record.
type LaunchCallResponse struct {
	Success  bool   `json:"success"`
	RoomName string `json:"room_name,omitempty"`
	JobId    string `json:"job_id,omitempty"`
	Message  string `json:"message"`
}

// CallApi serves the outbound-call endpoints.
type CallApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	launcher Launcher
}

// New wires the call api.
func New(cfg *config.AppConfig, logger commons.Logger, launcher Launcher) *CallApi {
	return &CallApi{cfg: cfg, logger: logger, launcher: launcher}
}

// LaunchCall creates a room and dispatches the recruiting agent, which then
// places the outbound SIP call.
func (a *CallApi) LaunchCall(c *gin.Context) {
	var req LaunchCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	a.logger.Info("launching call",
		"participant", req.ParticipantName, "phone", req.PhoneNumber)

	roomName, jobId, err := a.launcher.Launch(c.Request.Context(), internal_dispatch.LaunchRequest{
		ParticipantName:    req.ParticipantName,
		ParticipantContext: req.ParticipantContext,
		PhoneNumber:        req.PhoneNumber,
		TrialName:          req.TrialName,
		TrialDescription:   req.TrialDescription,
		CompensationInfo:   req.CompensationInfo,
		ContactInfo:        req.ContactInfo,
		SipTrunkId:         req.SipTrunkId,
		CallerId:           req.CallerId,
	})
	if err != nil {
		if errors.Is(err, internal_livekit.ErrMissingCredentials) {
			a.logger.Error("configuration error", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{
				"detail": fmt.Sprintf("Configuration error: %v", err),
			})
			return
		}
		a.logger.Error("failed to launch call", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("Failed to launch call: %v", err),
		})
		return
	}

	a.logger.Info("call launched", "room", roomName, "job", jobId)
	c.JSON(http.StatusOK, LaunchCallResponse{
		Success:  true,
		RoomName: roomName,
		JobId:    jobId,
		Message:  fmt.Sprintf("Call launched successfully to %s", req.ParticipantName),
	})
}

// Health is the liveness probe.
func (a *CallApi) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": a.cfg.Name,
	})
}

// Banner is the root service descriptor.
func (a *CallApi) Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Clinical Trial Agent API",
		"version": a.cfg.Version,
		"health":  "/api/health",
	})
}
