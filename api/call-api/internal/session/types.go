// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import (
	"context"
	"time"

	internal_contactstore "github.com/rapidaai/outreach/api/call-api/internal/contactstore"
)

// State identifies where a call session is in its lifecycle.
type State int32

const (
	StateInitializing State = iota
	StateSessionStarting
	StateDialing
	StateWaitingForAnswer
	StateAnswerDetectWindow
	StateConversing
	StateTerminating
	StateTerminated
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateSessionStarting:
		return "session_starting"
	case StateDialing:
		return "dialing"
	case StateWaitingForAnswer:
		return "waiting_for_answer"
	case StateAnswerDetectWindow:
		return "answer_detect_window"
	case StateConversing:
		return "conversing"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Timeouts carries the numeric parameters of the state machine. All values
// are re-configurable per deployment.
type Timeouts struct {
	// AnswerWait bounds the dial operation (wait-until-answered).
	AnswerWait time.Duration
	// ParticipantJoin bounds the wait for the callee to register in the room
	// after the dial resolved.
	ParticipantJoin time.Duration
	// PreGreetingPause lets a pre-recorded voicemail greeting begin playing
	// before the agent speaks, so the model classifies voicemail from the
	// machine's own opening words instead of colliding with them.
	PreGreetingPause time.Duration
	// KeepAlivePoll is the completed-flag polling interval of the keep-alive
	// loop.
	KeepAlivePoll time.Duration
	// WriteDrain bounds the join on in-flight status writes at teardown.
	WriteDrain time.Duration
	// SubstantialWords is the word-count threshold above which a transcript
	// counts as a substantial utterance.
	SubstantialWords int
}

// DefaultTimeouts returns the standard parameters.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		AnswerWait:       60 * time.Second,
		ParticipantJoin:  10 * time.Second,
		PreGreetingPause: 2 * time.Second,
		KeepAlivePoll:    time.Second,
		WriteDrain:       5 * time.Second,
		SubstantialWords: 2,
	}
}

// Job is one dispatched call-session unit of work.
type Job struct {
	RoomName   string
	DispatchId string
	Metadata   string
}

// DialRequest describes the outbound SIP leg the session needs created.
type DialRequest struct {
	RoomName            string
	TrunkId             string
	CalleeNumber        string
	CallerId            string
	ParticipantIdentity string
	ParticipantName     string
}

// CallLeg is the provider's handle for an answered outbound call.
type CallLeg struct {
	ParticipantId string
	SipCallId     string
}

// Dialer places the outbound call. The implementation resolves only once
// the callee answers; the session bounds it via the context deadline and
// cancels the pending call on timeout.
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (*CallLeg, error)
}

// RoomCloser tears down the session room, implicitly disconnecting the SIP
// leg and all media. This is the hang-up primitive.
type RoomCloser interface {
	DeleteRoom(ctx context.Context, roomName string) error
}

// ContactMarker persists the contacted status. Satisfied by the contact
// store; the session guards it to a single invocation per call.
type ContactMarker interface {
	UpdateStatus(ctx context.Context, phoneNumber, status string) (*internal_contactstore.Result, error)
}

// Participant is the answering callee's handle inside the room.
type Participant interface {
	Identity() string
}

// Transcript is one speech-recognition result for the callee.
type Transcript struct {
	ParticipantIdentity string
	Text                string
	// Final marks an utterance-final result (not interim).
	Final bool
}

// ToolInvocation is a model-initiated tool call surfaced by the media
// session. Reply delivers the tool result back to the model; it never
// blocks and only the first reply counts.
type ToolInvocation struct {
	Name    string
	respond chan string
}

// NewToolInvocation builds an invocation and the channel its reply will be
// delivered on.
func NewToolInvocation(name string) (ToolInvocation, <-chan string) {
	ch := make(chan string, 1)
	return ToolInvocation{Name: name, respond: ch}, ch
}

// Reply delivers the tool result. Non-blocking; duplicate replies are
// dropped.
func (ti ToolInvocation) Reply(result string) {
	if ti.respond == nil {
		return
	}
	select {
	case ti.respond <- result:
	default:
	}
}

// MediaSessionOptions configures the duplex audio session bound to a room.
type MediaSessionOptions struct {
	RoomName            string
	Instructions        string
	ParticipantIdentity string
	// TelephonyNoiseCancellation requests noise suppression tuned for
	// telephone audio.
	TelephonyNoiseCancellation bool
	// PreConnectAudio buffers callee audio captured before the pipeline is
	// fully attached.
	PreConnectAudio bool
	// CloseOnDisconnect ends the media session when the bound participant
	// leaves.
	CloseOnDisconnect bool
}

// MediaSession is the duplex conversation pipeline (speech recognition,
// language model, synthesis, voice-activity detection) bound to a room.
type MediaSession interface {
	// Start attaches the pipeline to the room. Called before dialing so the
	// callee's first words are never dropped.
	Start(ctx context.Context, opts MediaSessionOptions) error

	// WaitForParticipant blocks until the identity joins the room or the
	// timeout elapses.
	WaitForParticipant(ctx context.Context, identity string, timeout time.Duration) (Participant, error)

	// Say synthesizes and speaks text.
	Say(ctx context.Context, text string) error

	// WaitForPlayout blocks until in-flight synthesized speech finished
	// playing out.
	WaitForPlayout(ctx context.Context) error

	// Transcripts streams recognition results for the callee.
	Transcripts() <-chan Transcript

	// ToolCalls streams model tool invocations.
	ToolCalls() <-chan ToolInvocation

	// Close releases the pipeline. Idempotent.
	Close(ctx context.Context) error
}
