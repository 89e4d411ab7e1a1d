// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_livekit

import (
	"context"
	"fmt"

	internal_session "github.com/rapidaai/outreach/api/call-api/internal/session"
	"github.com/rapidaai/outreach/pkg/commons"
)

// SessionAdapter exposes the LiveKit client through the narrow interfaces
// the call session consumes. Provider SIP status codes are folded into the
// returned error so the session's abort log carries them.
type SessionAdapter struct {
	client *Client
	logger commons.Logger
}

// NewSessionAdapter wraps the client for session use.
func NewSessionAdapter(client *Client, logger commons.Logger) *SessionAdapter {
	return &SessionAdapter{client: client, logger: logger}
}

// Dial implements the session dialer over the SIP participant API.
func (a *SessionAdapter) Dial(ctx context.Context, req internal_session.DialRequest) (*internal_session.CallLeg, error) {
	info, err := a.client.Dial(ctx, DialRequest{
		RoomName:            req.RoomName,
		TrunkId:             req.TrunkId,
		CalleeNumber:        req.CalleeNumber,
		CallerId:            req.CallerId,
		ParticipantIdentity: req.ParticipantIdentity,
		ParticipantName:     req.ParticipantName,
	})
	if err != nil {
		if code, status, ok := SIPStatus(err); ok && code != "" {
			return nil, fmt.Errorf("outbound call rejected (SIP %s %s): %w", code, status, err)
		}
		return nil, fmt.Errorf("failed to create SIP participant: %w", err)
	}
	return &internal_session.CallLeg{
		ParticipantId: info.GetParticipantId(),
		SipCallId:     info.GetSipCallId(),
	}, nil
}

// DeleteRoom implements the session's hang-up primitive.
func (a *SessionAdapter) DeleteRoom(ctx context.Context, roomName string) error {
	return a.client.DeleteRoom(ctx, roomName)
}
