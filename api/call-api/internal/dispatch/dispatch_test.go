// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	internal_agent "github.com/rapidaai/outreach/api/call-api/internal/agent"
	internal_entity "github.com/rapidaai/outreach/api/call-api/internal/entity"
	internal_session "github.com/rapidaai/outreach/api/call-api/internal/session"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoomCreator struct {
	created []string
	err     error
}

func (f *fakeRoomCreator) CreateRoom(ctx context.Context, name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, name)
	return name, nil
}

type fakeSubmitter struct {
	tasks []internal_agent.Task
	err   error
}

func (f *fakeSubmitter) Submit(task internal_agent.Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeSessionRunner struct {
	jobs []internal_session.Job
}

func (f *fakeSessionRunner) Run(ctx context.Context, job internal_session.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newLauncher(t *testing.T) (*Launcher, *fakeRoomCreator, *fakeSubmitter, *fakeSessionRunner) {
	t.Helper()
	logger, err := commons.NewApplicationLogger(commons.WithLevel("error"))
	require.NoError(t, err)
	rooms := &fakeRoomCreator{}
	submitter := &fakeSubmitter{}
	sessions := &fakeSessionRunner{}
	return NewLauncher(logger, rooms, submitter, sessions), rooms, submitter, sessions
}

func TestLaunchRejectsMissingPhoneBeforeAnyProviderCall(t *testing.T) {
	l, rooms, submitter, _ := newLauncher(t)

	_, _, err := l.Launch(context.Background(), LaunchRequest{
		ParticipantName:    "Alex",
		ParticipantContext: "Researcher with expertise in Oncology",
	})
	assert.ErrorIs(t, err, ErrMissingPhoneNumber)
	assert.Empty(t, rooms.created)
	assert.Empty(t, submitter.tasks)
}

func TestCreateRoomGeneratesUniqueName(t *testing.T) {
	l, _, _, _ := newLauncher(t)

	first, err := l.CreateRoom(context.Background(), "")
	require.NoError(t, err)
	second, err := l.CreateRoom(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "outbound-call-"))
	assert.Len(t, strings.TrimPrefix(first, "outbound-call-"), 12)
	assert.NotEqual(t, first, second)
}

func TestCreateRoomHonorsExplicitName(t *testing.T) {
	l, rooms, _, _ := newLauncher(t)

	name, err := l.CreateRoom(context.Background(), "custom-room")
	require.NoError(t, err)
	assert.Equal(t, "custom-room", name)
	assert.Equal(t, []string{"custom-room"}, rooms.created)
}

func TestLaunchRewritesResearcherFraming(t *testing.T) {
	l, _, submitter, sessions := newLauncher(t)

	room, jobId, err := l.Launch(context.Background(), LaunchRequest{
		ParticipantName:    "Alex",
		ParticipantContext: "Researcher with expertise in Chronic Kidney Disease. Found on ResearchGate.",
		PhoneNumber:        "+15551234567",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, room)
	assert.NotEmpty(t, jobId)

	require.Len(t, submitter.tasks, 1)
	require.NoError(t, submitter.tasks[0].Run(context.Background()))
	require.Len(t, sessions.jobs, 1)

	job := sessions.jobs[0]
	assert.Equal(t, room, job.RoomName)
	assert.Equal(t, jobId, job.DispatchId)

	trial, err := internal_entity.ParseTrialData(job.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "Patient interested in Chronic Kidney Disease. Recruited via ResearchGate patient platform.", trial.EligibilityCriteria)
	assert.Equal(t, trial.EligibilityCriteria, trial.AdditionalContext)
	assert.Equal(t, "+15551234567", trial.PhoneNumber)
}

func TestLaunchDefaultsTrialName(t *testing.T) {
	l, _, submitter, sessions := newLauncher(t)

	_, _, err := l.Launch(context.Background(), LaunchRequest{PhoneNumber: "+15551234567"})
	require.NoError(t, err)
	// Execute the queued task so the job reaches the fake session runner.
	require.Len(t, submitter.tasks, 1)
	require.NoError(t, submitter.tasks[0].Run(context.Background()))
	require.Len(t, sessions.jobs, 1)

	trial, err := internal_entity.ParseTrialData(sessions.jobs[0].Metadata)
	require.NoError(t, err)
	assert.Equal(t, "Clinical Trial", trial.TrialName)
	assert.Empty(t, trial.SipTrunkId)
	assert.Empty(t, trial.CallerId)
}

func TestLaunchCarriesSipOverrides(t *testing.T) {
	l, _, submitter, sessions := newLauncher(t)

	_, _, err := l.Launch(context.Background(), LaunchRequest{
		PhoneNumber: "+15551234567",
		SipTrunkId:  "ST_override",
		CallerId:    "+15559990000",
	})
	require.NoError(t, err)
	require.Len(t, submitter.tasks, 1)
	require.NoError(t, submitter.tasks[0].Run(context.Background()))

	trial, err := internal_entity.ParseTrialData(sessions.jobs[0].Metadata)
	require.NoError(t, err)
	assert.Equal(t, "ST_override", trial.SipTrunkId)
	assert.Equal(t, "+15559990000", trial.CallerId)
}

func TestLaunchSurfacesRoomCreationFailure(t *testing.T) {
	l, rooms, submitter, _ := newLauncher(t)
	rooms.err = errors.New("provider unavailable")

	_, _, err := l.Launch(context.Background(), LaunchRequest{PhoneNumber: "+15551234567"})
	assert.Error(t, err)
	assert.Empty(t, submitter.tasks)
}

func TestLaunchSurfacesSubmitFailure(t *testing.T) {
	l, _, submitter, _ := newLauncher(t)
	submitter.err = internal_agent.ErrQueueFull

	_, _, err := l.Launch(context.Background(), LaunchRequest{PhoneNumber: "+15551234567"})
	assert.ErrorIs(t, err, internal_agent.ErrQueueFull)
}
