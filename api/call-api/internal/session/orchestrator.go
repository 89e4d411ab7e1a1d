// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	internal_contactstore "github.com/rapidaai/outreach/api/call-api/internal/contactstore"
	internal_entity "github.com/rapidaai/outreach/api/call-api/internal/entity"
	internal_policy "github.com/rapidaai/outreach/api/call-api/internal/policy"
	"github.com/rapidaai/outreach/config"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

// startJoinWait bounds how long an aborting session waits for its media
// start to resolve before tearing down anyway.
const startJoinWait = 10 * time.Second

// Orchestrator owns the call-session state machine. It is the sole owner of
// the call lifecycle and the sole authority for releasing the session's
// resources, exactly once, regardless of which termination path fires.
type Orchestrator struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	dialer   Dialer
	rooms    RoomCloser
	contacts ContactMarker
	policy   *internal_policy.Policy
	timeouts Timeouts

	// newMediaSession builds the duplex pipeline for one session.
	newMediaSession func() MediaSession
}

// NewOrchestrator wires the session orchestrator.
func NewOrchestrator(
	cfg *config.AppConfig,
	logger commons.Logger,
	dialer Dialer,
	rooms RoomCloser,
	contacts ContactMarker,
	pol *internal_policy.Policy,
	newMediaSession func() MediaSession,
	timeouts Timeouts,
) *Orchestrator {
	return &Orchestrator{
		cfg:             cfg,
		logger:          logger,
		dialer:          dialer,
		rooms:           rooms,
		contacts:        contacts,
		policy:          pol,
		timeouts:        timeouts,
		newMediaSession: newMediaSession,
	}
}

// callSession is the mutable state of one outbound attempt. Owned
// exclusively by its Run invocation; the atomics exist because transcript
// events, tool invocations and the keep-alive loop race on real threads.
type callSession struct {
	job   Job
	trial *internal_entity.TrialData

	trunkId  string
	callerId string

	state         atomic.Int32
	completed     atomic.Bool
	voicemail     atomic.Bool
	statusUpdated atomic.Bool

	participant Participant

	media MediaSession

	// sessionStarted carries the media-start result; joined before any
	// teardown so Close never races Start's resource acquisition.
	sessionStarted chan error

	// pendingWrites tracks in-flight status persistence so teardown can
	// join (or deliberately abandon) them instead of silently dropping.
	pendingWrites sync.WaitGroup

	roomReleased atomic.Bool
	mediaClosed  atomic.Bool
}

func (s *callSession) setState(st State) {
	s.state.Store(int32(st))
}

// Run executes one call session to completion. Every return path has
// released the room and the media session exactly once.
func (o *Orchestrator) Run(ctx context.Context, job Job) error {
	s := &callSession{job: job, media: o.newMediaSession()}
	s.setState(StateInitializing)

	trial, err := internal_entity.ParseTrialData(job.Metadata)
	if err != nil {
		return o.abort(ctx, s, "parse_metadata", err)
	}
	s.trial = trial

	if utils.IsEmpty(trial.PhoneNumber) {
		return o.abort(ctx, s, "validate_metadata",
			errors.New("no phone number provided for outbound call"))
	}
	s.trunkId = utils.FirstNonEmpty(trial.SipTrunkId, o.cfg.OutboundSipTrunkId)
	if s.trunkId == "" {
		return o.abort(ctx, s, "validate_metadata",
			errors.New("no SIP trunk ID configured in metadata or environment"))
	}
	s.callerId = utils.FirstNonEmpty(trial.CallerId, o.cfg.OutboundCallerId)
	if s.callerId == "" {
		return o.abort(ctx, s, "validate_metadata",
			errors.New("no caller ID configured in metadata or environment"))
	}

	o.logger.Info("starting call session",
		"room", job.RoomName,
		"dispatch", job.DispatchId,
		"phone", trial.PhoneNumber,
		"trunk", s.trunkId,
		"caller_id", s.callerId,
		"participant", trial.ParticipantName)

	// The callee joins the room under its phone number.
	identity := trial.PhoneNumber

	// Start the conversation session before dialing. If the dial came
	// first and the callee answered before the pipeline was listening,
	// their opening words would be silently dropped.
	s.setState(StateSessionStarting)
	s.sessionStarted = make(chan error, 1)
	go func() {
		s.sessionStarted <- s.media.Start(ctx, MediaSessionOptions{
			RoomName:                   job.RoomName,
			Instructions:               o.policy.Render(trial),
			ParticipantIdentity:        identity,
			TelephonyNoiseCancellation: true,
			PreConnectAudio:            true,
			CloseOnDisconnect:          true,
		})
	}()

	// Dial concurrently with the session start. WaitUntilAnswered means
	// this resolves only on pickup; the deadline cancels the pending call
	// so an abandoned attempt does not keep ringing.
	s.setState(StateDialing)
	dialCtx, cancelDial := context.WithTimeout(ctx, o.timeouts.AnswerWait)
	defer cancelDial()

	s.setState(StateWaitingForAnswer)
	leg, err := o.dialer.Dial(dialCtx, DialRequest{
		RoomName:            job.RoomName,
		TrunkId:             s.trunkId,
		CalleeNumber:        trial.PhoneNumber,
		CallerId:            s.callerId,
		ParticipantIdentity: identity,
		ParticipantName:     "Clinical Trial Recruitment Agent",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return o.abort(ctx, s, "dial_answer_timeout",
				fmt.Errorf("call was not answered within %s: %w", o.timeouts.AnswerWait, err))
		}
		return o.abort(ctx, s, "create_sip_participant", err)
	}
	o.logger.Info("callee answered",
		"room", job.RoomName,
		"sip_call_id", leg.SipCallId,
		"participant_id", leg.ParticipantId)

	startErr := <-s.sessionStarted
	s.sessionStarted = nil
	if startErr != nil {
		return o.abort(ctx, s, "start_media_session", startErr)
	}

	// The dial already resolved as answered, so the join should be nearly
	// immediate; a miss here means nobody actually made it into the room.
	s.setState(StateAnswerDetectWindow)
	participant, err := s.media.WaitForParticipant(ctx, identity, o.timeouts.ParticipantJoin)
	if err != nil {
		return o.abort(ctx, s, "wait_for_participant",
			fmt.Errorf("callee did not join the room within %s: %w", o.timeouts.ParticipantJoin, err))
	}
	s.participant = participant

	// Let a voicemail greeting start playing before speaking, so the model
	// classifies the machine from its own opening words.
	select {
	case <-time.After(o.timeouts.PreGreetingPause):
	case <-ctx.Done():
		return o.abort(ctx, s, "pre_greeting_pause", ctx.Err())
	}

	greeting := o.policy.Greeting(trial)
	o.logger.Info("speaking greeting", "room", job.RoomName, "greeting", greeting)
	if err := s.media.Say(ctx, greeting); err != nil {
		return o.abort(ctx, s, "speak_greeting", err)
	}

	s.setState(StateConversing)
	o.converse(ctx, s)

	s.setState(StateTerminating)
	o.drainPendingWrites(s)
	o.closeMedia(ctx, s)
	o.releaseRoom(ctx, s)
	s.setState(StateTerminated)

	o.logger.Info("call session ended",
		"room", job.RoomName,
		"voicemail", s.voicemail.Load(),
		"status_updated", s.statusUpdated.Load())
	return nil
}

// converse runs the steady state: transcript-driven auto-contact-marking
// and model tool invocations, with a keep-alive poll on the completed flag.
// Hang-up happens only inside the two terminating tool handlers, never
// from the polling branch.
func (o *Orchestrator) converse(ctx context.Context, s *callSession) {
	ticker := time.NewTicker(o.timeouts.KeepAlivePoll)
	defer ticker.Stop()

	transcripts := s.media.Transcripts()
	toolCalls := s.media.ToolCalls()

	for !s.completed.Load() {
		select {
		case <-ctx.Done():
			o.logger.Warn("call session cancelled mid-conversation", "room", s.job.RoomName)
			s.completed.Store(true)
			return
		case tr, ok := <-transcripts:
			if !ok {
				transcripts = nil
				continue
			}
			o.handleTranscript(ctx, s, tr)
		case inv, ok := <-toolCalls:
			if !ok {
				// The media layer closes this channel when the callee drops
				// or the pipeline dies; either way the conversation is over.
				o.logger.Info("media session ended, terminating call", "room", s.job.RoomName)
				s.completed.Store(true)
				return
			}
			o.handleToolInvocation(ctx, s, inv)
		case <-ticker.C:
			// Keep-alive only; termination work happens in the handlers.
		}
	}
}

// handleTranscript applies the first-substantial-utterance rule: guarantee
// a "Contacted" record even if the call drops before a clean close.
func (o *Orchestrator) handleTranscript(ctx context.Context, s *callSession, tr Transcript) {
	if !tr.Final || s.statusUpdated.Load() {
		return
	}
	if !SubstantialUtterance(tr.Text, o.timeouts.SubstantialWords) {
		o.logger.Debug("non-substantial response, waiting for more context",
			"room", s.job.RoomName, "transcript", tr.Text)
		return
	}
	o.logger.Info("first substantial response detected",
		"room", s.job.RoomName, "transcript", tr.Text)
	o.markContacted(s, "transcript")
}

func (o *Orchestrator) handleToolInvocation(ctx context.Context, s *callSession, inv ToolInvocation) {
	switch inv.Name {
	case internal_policy.ToolDetectedAnsweringMachine:
		o.logger.Info("voicemail detected, hanging up immediately", "room", s.job.RoomName)
		s.voicemail.Store(true)
		s.completed.Store(true)
		// No sign-off: a machine does not benefit from one and extra
		// speech risks corrupting a left message.
		inv.Reply("Voicemail detected - hung up immediately")
		o.releaseRoom(ctx, s)

	case internal_policy.ToolEndCallSuccessful:
		o.logger.Info("call completed successfully", "room", s.job.RoomName)
		s.completed.Store(true)
		inv.Reply("Thank you! Have a great day!")
		// Let the in-flight sign-off finish playing before tearing the
		// room down.
		if err := s.media.WaitForPlayout(ctx); err != nil {
			o.logger.Warn("playout wait failed before hang-up",
				"room", s.job.RoomName, "error", err.Error())
		}
		o.releaseRoom(ctx, s)

	case internal_policy.ToolMarkContacted:
		inv.Reply(o.markContacted(s, "tool"))

	default:
		o.logger.Warn("unknown tool invocation", "room", s.job.RoomName, "tool", inv.Name)
		inv.Reply(fmt.Sprintf("Unknown tool: %s", inv.Name))
	}
}

// markContacted performs the idempotent contacted-status write. The guard
// flips before the store call is awaited so a concurrent second trigger
// cannot double-fire while the first is in flight.
func (o *Orchestrator) markContacted(s *callSession, source string) string {
	if !s.statusUpdated.CompareAndSwap(false, true) {
		o.logger.Info("status already updated, skipping duplicate call",
			"room", s.job.RoomName, "source", source)
		return "Status already updated"
	}

	phone := s.trial.PhoneNumber
	s.pendingWrites.Add(1)
	go func() {
		defer s.pendingWrites.Done()
		// Deliberately detached from the session context: the write should
		// survive an imminent hang-up, bounded by its own deadline.
		writeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		result, err := o.contacts.UpdateStatus(writeCtx, phone, internal_contactstore.StatusContacted)
		if err != nil {
			o.logger.Warn("failed to update contact status",
				"room", s.job.RoomName, "phone", phone, "source", source, "error", err.Error())
			return
		}
		if !result.Success {
			o.logger.Warn("contact status update found no record",
				"room", s.job.RoomName, "phone", result.Phone, "message", result.Message)
			return
		}
		o.logger.Info("updated status to Contacted",
			"room", s.job.RoomName, "phone", result.Phone, "source", source)
	}()

	return "Updating status to Contacted"
}

// abort is the terminal path for configuration, timeout, provider and
// unexpected errors: log full diagnostic context, release resources, never
// leave a dangling room or an un-terminated call leg.
func (o *Orchestrator) abort(ctx context.Context, s *callSession, operation string, err error) error {
	s.setState(StateAborted)

	phone := ""
	if s.trial != nil {
		phone = s.trial.PhoneNumber
	}
	o.logger.Error("call session aborted",
		"operation", operation,
		"room", s.job.RoomName,
		"phone", phone,
		"trunk", s.trunkId,
		"error", err.Error())

	o.joinSessionStart(s)
	o.drainPendingWrites(s)
	o.closeMedia(ctx, s)
	o.releaseRoom(ctx, s)
	return fmt.Errorf("%s: %w", operation, err)
}

// joinSessionStart waits for an in-flight media start to resolve. Aborting
// while Start is still acquiring its connections would let Close run against
// a half-built session and strand whatever Start opened afterwards.
func (o *Orchestrator) joinSessionStart(s *callSession) {
	if s.sessionStarted == nil {
		return
	}
	select {
	case err := <-s.sessionStarted:
		if err != nil {
			o.logger.Warn("media session start failed during abort",
				"room", s.job.RoomName, "error", err.Error())
		}
	case <-time.After(startJoinWait):
		o.logger.Warn("media session start still pending at teardown",
			"room", s.job.RoomName)
	}
	s.sessionStarted = nil
}

// releaseRoom deletes the session room at most once. Deleting the room
// disconnects the SIP leg and all media; a failure here is logged and the
// shutdown continues.
func (o *Orchestrator) releaseRoom(ctx context.Context, s *callSession) {
	if !s.roomReleased.CompareAndSwap(false, true) {
		return
	}
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.rooms.DeleteRoom(deleteCtx, s.job.RoomName); err != nil {
		o.logger.Error("failed to delete room",
			"room", s.job.RoomName, "error", err.Error())
	}
}

func (o *Orchestrator) closeMedia(ctx context.Context, s *callSession) {
	if !s.mediaClosed.CompareAndSwap(false, true) {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.media.Close(closeCtx); err != nil {
		o.logger.Warn("failed to close media session",
			"room", s.job.RoomName, "error", err.Error())
	}
}

// drainPendingWrites joins in-flight status writes with a bounded wait;
// writes still pending after the bound are abandoned with a log line rather
// than silently dropped with the room.
func (o *Orchestrator) drainPendingWrites(s *callSession) {
	done := make(chan struct{})
	go func() {
		s.pendingWrites.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(o.timeouts.WriteDrain):
		o.logger.Warn("abandoning in-flight status write at teardown",
			"room", s.job.RoomName, "drain_timeout", o.timeouts.WriteDrain.String())
	}
}
