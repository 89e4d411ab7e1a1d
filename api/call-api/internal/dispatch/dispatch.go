// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	internal_agent "github.com/rapidaai/outreach/api/call-api/internal/agent"
	internal_entity "github.com/rapidaai/outreach/api/call-api/internal/entity"
	internal_session "github.com/rapidaai/outreach/api/call-api/internal/session"
	"github.com/rapidaai/outreach/pkg/commons"
)

// ErrMissingPhoneNumber rejects a launch before any provider resource is
// allocated: no room is created and no dial is attempted.
var ErrMissingPhoneNumber = errors.New("phone number is required to launch a call")

// RoomCreator provisions the ephemeral room one call runs in.
type RoomCreator interface {
	CreateRoom(ctx context.Context, name string) (string, error)
}

// JobSubmitter queues agent work.
type JobSubmitter interface {
	Submit(task internal_agent.Task) error
}

// SessionRunner executes one call session to completion.
type SessionRunner interface {
	Run(ctx context.Context, job internal_session.Job) error
}

// LaunchRequest is the caller-supplied information for one outbound call.
type LaunchRequest struct {
	ParticipantName    string
	ParticipantContext string
	PhoneNumber        string

	TrialName        string
	TrialDescription string
	CompensationInfo string
	ContactInfo      string

	SipTrunkId string
	CallerId   string
}

// Launcher provisions a room and schedules a call session into it. The HTTP
// caller only ever learns whether the launch succeeded; the call's outcome
// is observed asynchronously through the contact record.
type Launcher struct {
	logger   commons.Logger
	rooms    RoomCreator
	runner   JobSubmitter
	sessions SessionRunner
}

// NewLauncher wires the dispatch adapter.
func NewLauncher(logger commons.Logger, rooms RoomCreator, runner JobSubmitter, sessions SessionRunner) *Launcher {
	return &Launcher{logger: logger, rooms: rooms, runner: runner, sessions: sessions}
}

// CreateRoom provisions a session room, generating a unique name when none
// is given.
func (l *Launcher) CreateRoom(ctx context.Context, name string) (string, error) {
	if name == "" {
		id := uuid.New()
		name = fmt.Sprintf("outbound-call-%x", id[:6])
	}
	return l.rooms.CreateRoom(ctx, name)
}

// Dispatch serializes the trial data and schedules the session job bound to
// the room.
func (l *Launcher) Dispatch(ctx context.Context, roomName string, trial *internal_entity.TrialData) (string, error) {
	metadata, err := trial.Encode()
	if err != nil {
		return "", err
	}

	jobId := uuid.NewString()
	job := internal_session.Job{
		RoomName:   roomName,
		DispatchId: jobId,
		Metadata:   metadata,
	}
	if err := l.runner.Submit(internal_agent.Task{
		Id: jobId,
		Run: func(taskCtx context.Context) error {
			return l.sessions.Run(taskCtx, job)
		},
	}); err != nil {
		return "", fmt.Errorf("failed to dispatch call session to room %s: %w", roomName, err)
	}

	l.logger.Info("dispatched call session", "room", roomName, "job", jobId)
	return jobId, nil
}

// Launch composes room creation and dispatch for one participant.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) (roomName, jobId string, err error) {
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return "", "", ErrMissingPhoneNumber
	}

	trial := buildTrialData(req)

	roomName, err = l.CreateRoom(ctx, "")
	if err != nil {
		return "", "", err
	}

	jobId, err = l.Dispatch(ctx, roomName, trial)
	if err != nil {
		return "", "", err
	}
	return roomName, jobId, nil
}

// patientFraming rewrites researcher-sourced context into the patient
// framing the recruiting agent needs. Profiles arrive phrased around
// research expertise; the call is about the person's own condition.
var patientFraming = strings.NewReplacer(
	"Researcher with expertise in", "Patient interested in",
	"Found on ResearchGate", "Recruited via ResearchGate patient platform",
)

func buildTrialData(req LaunchRequest) *internal_entity.TrialData {
	patientContext := patientFraming.Replace(req.ParticipantContext)

	trialName := req.TrialName
	if trialName == "" {
		trialName = "Clinical Trial"
	}

	return &internal_entity.TrialData{
		ParticipantName:     req.ParticipantName,
		PhoneNumber:         req.PhoneNumber,
		TrialName:           trialName,
		TrialDescription:    req.TrialDescription,
		EligibilityCriteria: patientContext,
		CompensationInfo:    req.CompensationInfo,
		ContactInfo:         req.ContactInfo,
		AdditionalContext:   patientContext,
		SipTrunkId:          req.SipTrunkId,
		CallerId:            req.CallerId,
	}
}
