// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_pipeline is the duplex media session: room audio in and
// out, bridged through the speech-to-text, conversation and text-to-speech
// transformers, with voice-activity detection for barge-in.
package internal_pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"golang.org/x/sync/errgroup"
	opus "gopkg.in/hraban/opus.v2"

	internal_policy "github.com/rapidaai/outreach/api/call-api/internal/policy"
	internal_session "github.com/rapidaai/outreach/api/call-api/internal/session"
	internal_transformer "github.com/rapidaai/outreach/api/call-api/internal/transformer"
	internal_transformer_cartesia "github.com/rapidaai/outreach/api/call-api/internal/transformer/cartesia"
	internal_transformer_deepgram "github.com/rapidaai/outreach/api/call-api/internal/transformer/deepgram"
	internal_transformer_openai "github.com/rapidaai/outreach/api/call-api/internal/transformer/openai"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/utils"
)

const (
	agentIdentity = "recruiting-agent"

	toolSubmitTimeout = 5 * time.Second
	toolReplyTimeout  = 10 * time.Second
)

// Config carries the provider credentials the pipeline needs.
type Config struct {
	LivekitUrl       string
	LivekitApiKey    string
	LivekitApiSecret string

	DeepgramApiKey string
	OpenaiApiKey   string
	CartesiaApiKey string
	VadModelPath   string
}

// Session binds one room to a full voice pipeline. It satisfies the
// orchestrator's media-session contract.
type Session struct {
	cfg    Config
	logger commons.Logger
	opts   internal_session.MediaSessionOptions

	pipeCtx context.Context
	cancel  context.CancelFunc

	room       *lksdk.Room
	localTrack *lksdk.LocalSampleTrack
	encoder    *opus.Encoder

	stt internal_transformer.SpeechToTextTransformer
	tts internal_transformer.TextToSpeechTransformer
	llm internal_transformer.ConversationTransformer

	playout *playoutController
	vad     *voiceDetector

	transcripts chan internal_session.Transcript
	toolCalls   chan internal_session.ToolInvocation

	// chanMu guards channel sends against the one-time closure in end().
	chanMu      sync.Mutex
	chansClosed bool
	endOnce     sync.Once
	closeOnce   sync.Once
	stopped     chan struct{}

	waiterMu sync.Mutex
	waiters  map[string][]chan internal_session.Participant
}

// NewSession builds an unstarted pipeline session.
func NewSession(cfg Config, logger commons.Logger) *Session {
	return &Session{
		cfg:         cfg,
		logger:      logger,
		transcripts: make(chan internal_session.Transcript, 64),
		toolCalls:   make(chan internal_session.ToolInvocation, 16),
		stopped:     make(chan struct{}),
		waiters:     make(map[string][]chan internal_session.Participant),
	}
}

// Start attaches the full pipeline to the room. Deliberately started before
// the dial so the callee's opening words are never dropped.
func (s *Session) Start(ctx context.Context, opts internal_session.MediaSessionOptions) error {
	s.opts = opts
	// The pipeline outlives Start's context: teardown is explicit via Close.
	s.pipeCtx, s.cancel = context.WithCancel(context.Background())

	s.vad = newVoiceDetector(s.logger, s.cfg.VadModelPath)

	encoder, err := opus.NewEncoder(roomSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return fmt.Errorf("failed to create opus encoder: %w", err)
	}
	s.encoder = encoder

	localTrack, err := lksdk.NewLocalSampleTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: roomSampleRate,
		Channels:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to create local audio track: %w", err)
	}
	s.localTrack = localTrack
	s.playout = newPlayoutController(s.logger, s.writeFrame)

	if err := s.startTransformers(opts); err != nil {
		s.teardown()
		return err
	}

	room, err := lksdk.ConnectToRoom(s.cfg.LivekitUrl, lksdk.ConnectInfo{
		APIKey:              s.cfg.LivekitApiKey,
		APISecret:           s.cfg.LivekitApiSecret,
		RoomName:            opts.RoomName,
		ParticipantIdentity: agentIdentity,
		ParticipantName:     "Clinical Trial Recruitment Agent",
	}, &lksdk.RoomCallback{
		OnParticipantConnected:    s.onParticipantConnected,
		OnParticipantDisconnected: s.onParticipantDisconnected,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: s.onTrackSubscribed,
		},
	})
	if err != nil {
		s.teardown()
		return fmt.Errorf("failed to connect to room %s: %w", opts.RoomName, err)
	}
	s.room = room

	if _, err := room.LocalParticipant.PublishTrack(s.localTrack, &lksdk.TrackPublicationOptions{
		Name: "agent-voice",
	}); err != nil {
		s.teardown()
		return fmt.Errorf("failed to publish agent audio track: %w", err)
	}

	// If Close already ran, its teardown saw a half-built session; release
	// everything startup just opened instead of returning it live.
	select {
	case <-s.stopped:
		s.teardown()
		room.Disconnect()
		return fmt.Errorf("media session closed during startup")
	default:
	}

	s.logger.Info("media session started",
		"room", opts.RoomName,
		"noise_cancellation", opts.TelephonyNoiseCancellation,
		"pre_connect_audio", opts.PreConnectAudio)
	return nil
}

func (s *Session) startTransformers(opts internal_session.MediaSessionOptions) error {
	tts, err := internal_transformer_cartesia.NewCartesiaTextToSpeech(
		s.pipeCtx, s.logger, s.cfg.CartesiaApiKey, utils.Option{},
		&internal_transformer.TextToSpeechInitializeOptions{
			OnSpeech:   s.onSpeech,
			OnComplete: s.onSpeechComplete,
		})
	if err != nil {
		return err
	}
	stt, err := internal_transformer_deepgram.NewDeepgramSpeechToText(
		s.pipeCtx, s.logger, s.cfg.DeepgramApiKey, utils.Option{},
		&internal_transformer.SpeechToTextInitializeOptions{
			OnTranscript: s.onTranscript,
		})
	if err != nil {
		return err
	}

	// Assigned before the dials so teardown closes whichever connected.
	s.tts = tts
	s.stt = stt

	// Both vendor connections are independent websocket dials.
	var group errgroup.Group
	group.Go(tts.Initialize)
	group.Go(stt.Initialize)
	if err := group.Wait(); err != nil {
		return err
	}

	tools := make([]internal_transformer.ToolDefinition, 0, len(internal_policy.ToolDescriptions))
	for name, description := range internal_policy.ToolDescriptions {
		tools = append(tools, internal_transformer.ToolDefinition{
			Name:        name,
			Description: description,
		})
	}
	llm, err := internal_transformer_openai.NewOpenaiConversation(
		s.pipeCtx, s.logger, s.cfg.OpenaiApiKey, utils.Option{},
		&internal_transformer.ConversationInitializeOptions{
			Instructions:    opts.Instructions,
			Tools:           tools,
			OnAssistantText: s.onAssistantText,
			OnToolCall:      s.onToolCall,
		})
	if err != nil {
		return err
	}
	s.llm = llm
	return nil
}

// WaitForParticipant blocks until the identity joins the room.
func (s *Session) WaitForParticipant(ctx context.Context, identity string, timeout time.Duration) (internal_session.Participant, error) {
	s.waiterMu.Lock()
	if s.room != nil {
		for _, rp := range s.room.GetRemoteParticipants() {
			if rp.Identity() == identity {
				s.waiterMu.Unlock()
				return rp, nil
			}
		}
	}
	ch := make(chan internal_session.Participant, 1)
	s.waiters[identity] = append(s.waiters[identity], ch)
	s.waiterMu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p := <-ch:
		return p, nil
	case <-timer.C:
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.stopped:
		return nil, fmt.Errorf("media session ended while waiting for participant")
	}
}

// Say synthesizes text onto the room track, superseding any in-flight
// playout.
func (s *Session) Say(ctx context.Context, text string) error {
	if s.tts == nil {
		return fmt.Errorf("media session is not started")
	}
	contextId := uuid.NewString()
	s.playout.Begin(contextId)
	return s.tts.Transform(ctx, text, &internal_transformer.TextToSpeechOption{
		ContextId:  contextId,
		IsComplete: true,
	})
}

// WaitForPlayout blocks until queued speech finished playing out.
func (s *Session) WaitForPlayout(ctx context.Context) error {
	if s.playout == nil {
		return nil
	}
	return s.playout.WaitIdle(ctx)
}

func (s *Session) Transcripts() <-chan internal_session.Transcript {
	return s.transcripts
}

func (s *Session) ToolCalls() <-chan internal_session.ToolInvocation {
	return s.toolCalls
}

// Close releases the pipeline. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.end()
		s.teardown()
		if s.room != nil {
			s.room.Disconnect()
		}
		s.logger.Info("media session closed", "room", s.opts.RoomName)
	})
	return nil
}

// end signals consumers that the conversation is over. Closing the tool
// channel is the signal the orchestrator terminates on.
func (s *Session) end() {
	s.endOnce.Do(func() {
		close(s.stopped)
		s.chanMu.Lock()
		s.chansClosed = true
		close(s.toolCalls)
		s.chanMu.Unlock()
	})
}

func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.playout != nil {
		s.playout.Close()
	}
	if s.stt != nil {
		_ = s.stt.Close(context.Background())
	}
	if s.tts != nil {
		_ = s.tts.Close(context.Background())
	}
	if s.llm != nil {
		_ = s.llm.Close(context.Background())
	}
	if s.vad != nil {
		s.vad.Close()
	}
}

// writeFrame encodes one vendor-rate frame and writes it to the room track.
func (s *Session) writeFrame(pcm []int16) error {
	upsampled := upsampleToRoom(pcm)
	buf := make([]byte, 1400)
	n, err := s.encoder.Encode(upsampled, buf)
	if err != nil {
		return fmt.Errorf("opus encode failed: %w", err)
	}
	return s.localTrack.WriteSample(media.Sample{
		Data:     buf[:n],
		Duration: frameDuration,
	}, nil)
}

func (s *Session) onSpeech(contextId string, audio []byte) error {
	s.playout.Enqueue(contextId, bytesToPCM(audio))
	return nil
}

func (s *Session) onSpeechComplete(contextId string) error {
	s.playout.Complete(contextId)
	return nil
}

// onTranscript forwards recognition results to the orchestrator and feeds
// finalized utterances to the conversation model.
func (s *Session) onTranscript(text string, confidence float64, language string, isFinal bool) error {
	s.emitTranscript(internal_session.Transcript{
		ParticipantIdentity: s.opts.ParticipantIdentity,
		Text:                text,
		Final:               isFinal,
	})
	if !isFinal {
		return nil
	}
	utils.Go(s.pipeCtx, func() {
		if err := s.llm.Respond(s.pipeCtx, text); err != nil {
			s.logger.Warn("conversation turn failed",
				"room", s.opts.RoomName, "error", err.Error())
		}
	})
	return nil
}

func (s *Session) emitTranscript(tr internal_session.Transcript) {
	s.chanMu.Lock()
	defer s.chanMu.Unlock()
	if s.chansClosed {
		return
	}
	select {
	case s.transcripts <- tr:
	default:
		s.logger.Warn("transcript channel full, dropping result", "room", s.opts.RoomName)
	}
}

func (s *Session) onAssistantText(text string) error {
	return s.Say(s.pipeCtx, text)
}

// onToolCall surfaces a model tool invocation to the orchestrator and waits
// for its reply, which becomes the tool result the model sees.
func (s *Session) onToolCall(name string, arguments string) (string, error) {
	inv, reply := internal_session.NewToolInvocation(name)
	if err := s.submitTool(inv); err != nil {
		return "", err
	}

	select {
	case result := <-reply:
		return result, nil
	case <-time.After(toolReplyTimeout):
		return "", fmt.Errorf("no reply for tool %s within %s", name, toolReplyTimeout)
	case <-s.stopped:
		return "", fmt.Errorf("media session ended")
	}
}

// submitTool hands an invocation to the orchestrator. The send is retried
// under the channel guard so it can never race the one-time closure.
func (s *Session) submitTool(inv internal_session.ToolInvocation) error {
	deadline := time.Now().Add(toolSubmitTimeout)
	for {
		s.chanMu.Lock()
		if s.chansClosed {
			s.chanMu.Unlock()
			return fmt.Errorf("media session ended")
		}
		select {
		case s.toolCalls <- inv:
			s.chanMu.Unlock()
			return nil
		default:
		}
		s.chanMu.Unlock()

		if time.Now().After(deadline) {
			return fmt.Errorf("tool channel full after %s", toolSubmitTimeout)
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-s.stopped:
			return fmt.Errorf("media session ended")
		}
	}
}

func (s *Session) onParticipantConnected(rp *lksdk.RemoteParticipant) {
	s.logger.Info("participant connected", "room", s.opts.RoomName, "identity", rp.Identity())
	s.waiterMu.Lock()
	defer s.waiterMu.Unlock()
	for _, ch := range s.waiters[rp.Identity()] {
		select {
		case ch <- rp:
		default:
		}
	}
	delete(s.waiters, rp.Identity())
}

func (s *Session) onParticipantDisconnected(rp *lksdk.RemoteParticipant) {
	s.logger.Info("participant disconnected", "room", s.opts.RoomName, "identity", rp.Identity())
	if s.opts.CloseOnDisconnect && rp.Identity() == s.opts.ParticipantIdentity {
		s.end()
	}
}

// onTrackSubscribed pumps the callee's audio into recognition and barge-in
// detection.
func (s *Session) onTrackSubscribed(track *webrtc.TrackRemote, publication *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
	if track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	if s.opts.ParticipantIdentity != "" && rp.Identity() != s.opts.ParticipantIdentity {
		return
	}
	go s.pumpRemoteAudio(track)
}

func (s *Session) pumpRemoteAudio(track *webrtc.TrackRemote) {
	decoder, err := opus.NewDecoder(roomSampleRate, 1)
	if err != nil {
		s.logger.Error("failed to create opus decoder", "error", err.Error())
		return
	}
	// Up to 120ms per opus frame.
	pcmBuf := make([]int16, roomSampleRate/1000*120)

	for {
		select {
		case <-s.stopped:
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		n, err := decoder.Decode(pkt.Payload, pcmBuf)
		if err != nil {
			continue
		}
		pcm := downsampleToVendor(pcmBuf[:n])

		// Barge-in: the callee talking over the agent cancels playout.
		if s.vad.Process(pcmToFloat32(pcm)) && s.playout.Speaking() {
			s.logger.Debug("barge-in detected, cancelling playout", "room", s.opts.RoomName)
			s.playout.Cancel()
		}
		if err := s.stt.Transform(s.pipeCtx, pcmToBytes(pcm), &internal_transformer.SpeechToTextOption{}); err != nil {
			s.logger.Warn("failed to submit audio for recognition", "error", err.Error())
			return
		}
	}
}
