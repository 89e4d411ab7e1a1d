// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_livekit

import (
	"context"
	"errors"
	"fmt"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"

	"github.com/rapidaai/outreach/config"
	"github.com/rapidaai/outreach/pkg/commons"
)

// ErrMissingCredentials marks an unusable provider configuration. The HTTP
// layer maps it to a configuration-error response.
var ErrMissingCredentials = errors.New("missing LiveKit configuration: ensure LIVEKIT_URL, LIVEKIT_API_KEY and LIVEKIT_API_SECRET are set")

// DialRequest describes one outbound SIP call leg.
type DialRequest struct {
	RoomName            string
	TrunkId             string
	CalleeNumber        string
	CallerId            string
	ParticipantIdentity string
	ParticipantName     string
}

// Client wraps the LiveKit server APIs used by this service: room
// create/delete and SIP participant creation. The SIP trunk, codecs and
// media routing are provider-hosted; this client only issues requests.
type Client struct {
	url    string
	rooms  *lksdk.RoomServiceClient
	sip    *lksdk.SIPClient
	logger commons.Logger
}

// NewClient validates provider credentials and builds the API clients.
func NewClient(cfg *config.AppConfig, logger commons.Logger) (*Client, error) {
	if !cfg.HasLivekitCredentials() {
		return nil, ErrMissingCredentials
	}
	return &Client{
		url:    cfg.LivekitUrl,
		rooms:  lksdk.NewRoomServiceClient(cfg.LivekitUrl, cfg.LivekitApiKey, cfg.LivekitApiSecret),
		sip:    lksdk.NewSIPClient(cfg.LivekitUrl, cfg.LivekitApiKey, cfg.LivekitApiSecret),
		logger: logger,
	}, nil
}

// Url returns the provider endpoint the client was built against.
func (c *Client) Url() string {
	return c.url
}

// CreateRoom creates the ephemeral room one call session runs in.
func (c *Client) CreateRoom(ctx context.Context, name string) (string, error) {
	room, err := c.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to create room %s: %w", name, err)
	}
	c.logger.Info("created room", "room", room.GetName())
	return room.GetName(), nil
}

// DeleteRoom tears down the room, which implicitly disconnects the SIP leg
// and all media. This is the hang-up primitive.
func (c *Client) DeleteRoom(ctx context.Context, name string) error {
	_, err := c.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: name})
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", name, err)
	}
	c.logger.Info("deleted room", "room", name)
	return nil
}

// Dial creates the outbound SIP call leg. WaitUntilAnswered makes the
// request itself resolve only once a human or answering system picks up,
// so the caller bounds the wait with its context deadline.
func (c *Client) Dial(ctx context.Context, req DialRequest) (*livekit.SIPParticipantInfo, error) {
	info, err := c.sip.CreateSIPParticipant(ctx, &livekit.CreateSIPParticipantRequest{
		RoomName:            req.RoomName,
		SipTrunkId:          req.TrunkId,
		SipCallTo:           req.CalleeNumber,
		SipNumber:           req.CallerId,
		ParticipantIdentity: req.ParticipantIdentity,
		ParticipantName:     req.ParticipantName,
		WaitUntilAnswered:   true,
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// SIPStatus extracts the provider-level SIP status code and category from a
// twirp RPC error, when present. Trunk or caller-id misconfiguration
// surfaces here as a provider rejection rather than local validation.
func SIPStatus(err error) (code string, status string, ok bool) {
	var terr twirp.Error
	if !errors.As(err, &terr) {
		return "", "", false
	}
	return terr.Meta("sip_status_code"), terr.Meta("sip_status"), true
}
