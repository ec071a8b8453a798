// Package google provides a Google Cloud Speech-to-Text recognizer.
package google

import (
	"context"
	"errors"
	"io"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"ai-chat-assistant-service/internal/speech"
)

// Config holds recognition settings for the Google provider.
type Config struct {
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
}

// Provider implements speech.Provider using Google Cloud Speech-to-Text.
// Audio is fed with SendAudio; transcript events are delivered by the
// receive loop started in Start.
type Provider struct {
	client *gspeech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	cfg    Config
	rcv    speech.Receiver
}

// New creates a Google recognizer.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	c, err := gspeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.SampleRateHz == 0 {
		cfg.SampleRateHz = 16000
	}
	return &Provider{client: c, cfg: cfg}, nil
}

// RequestPermission is a no-op: server-side credentials stand in for the
// browser permission prompt.
func (p *Provider) RequestPermission(ctx context.Context) error {
	return nil
}

// Start opens a streaming recognition session, sends the initial config
// and launches the receive loop.
func (p *Provider) Start(ctx context.Context, rcv speech.Receiver) error {
	stream, err := p.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}
	p.stream = stream
	p.rcv = rcv

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: int32(p.cfg.SampleRateHz),
					LanguageCode:    p.cfg.LanguageCode,
				},
				InterimResults: p.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		return err
	}

	rcv.OnEvent(speech.Event{Kind: speech.KindStart})
	go p.listen()
	return nil
}

// SendAudio forwards audio bytes to the recognizer.
func (p *Provider) SendAudio(ctx context.Context, audio []byte) error {
	return p.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Stop half-closes the audio stream; remaining results are still delivered.
func (p *Provider) Stop() error {
	if p.stream != nil {
		return p.stream.CloseSend()
	}
	return nil
}

// listen receives transcript responses and translates them into events.
func (p *Provider) listen() {
	for {
		resp, err := p.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.rcv.OnEvent(speech.Event{Kind: speech.KindEnd})
			} else {
				p.rcv.OnEvent(speech.Event{Kind: speech.KindError, Code: classify(err)})
			}
			return
		}

		var segs []speech.Segment
		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			segs = append(segs, speech.Segment{
				Text:  r.Alternatives[0].Transcript,
				Final: r.IsFinal,
			})
		}
		if len(segs) > 0 {
			p.rcv.OnEvent(speech.Event{Kind: speech.KindResult, Segments: segs})
		}
	}
}

// classify maps transport failures onto the recognizer error taxonomy.
func classify(err error) speech.ErrorCode {
	switch {
	case errors.Is(err, context.Canceled):
		return speech.ErrAborted
	case errors.Is(err, context.DeadlineExceeded):
		return speech.ErrNetwork
	default:
		return speech.ErrNetwork
	}
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}
