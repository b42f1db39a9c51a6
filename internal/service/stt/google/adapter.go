// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"errors"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog/log"

	"voice-appointment-service/internal/observability/metrics"
	"voice-appointment-service/internal/service/stt"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
	AudioEncoding  string
	// PhraseHints bias recognition toward catalog names.
	PhraseHints []string
}

// DefaultConfig returns settings for Spanish dictation from a browser
// microphone.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "es-ES",
		SampleRateHz:   16000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
	}
}

func parseAudioEncoding(s string) speechpb.RecognitionConfig_AudioEncoding {
	switch s {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}

type responseStream interface {
	Recv() (*speechpb.StreamingRecognizeResponse, error)
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	client  *speech.Client
	cfg     Config
	mu      sync.Mutex
	stream  speechpb.Speech_StreamingRecognizeClient
	cb      stt.Callback
	metrics *metrics.Metrics
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, cfg: cfg, metrics: metrics.DefaultMetrics}, nil
}

func (a *Adapter) streamingConfig() *speechpb.StreamingRecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(a.cfg.AudioEncoding),
		SampleRateHertz:            a.cfg.SampleRateHz,
		LanguageCode:               a.cfg.LanguageCode,
		EnableAutomaticPunctuation: false,
	}
	if len(a.cfg.PhraseHints) > 0 {
		rc.SpeechContexts = []*speechpb.SpeechContext{{Phrases: a.cfg.PhraseHints}}
	}
	return &speechpb.StreamingRecognitionConfig{
		Config:         rc,
		InterimResults: a.cfg.InterimResults,
	}
}

// Start begins a streaming recognition session, sends the initial config and
// starts listening for results.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.stream = stream
	a.cb = cb
	a.mu.Unlock()

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: a.streamingConfig(),
		},
	}); err != nil {
		return err
	}

	go a.listen(stream, cb)
	return nil
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream == nil {
		return errors.New("google stt: stream not started")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close half-closes the stream; remaining results and OnEnd still arrive.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stream != nil {
		return a.stream.CloseSend()
	}
	return nil
}

// listen receives transcript responses and invokes callbacks until the
// stream ends.
func (a *Adapter) listen(stream responseStream, cb stt.Callback) {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			cb.OnEnd()
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Google STT stream failed")
			if a.metrics != nil {
				a.metrics.RecordSTTError("google", "recv")
			}
			cb.OnError(err)
			return
		}
		dispatch(resp, cb)
	}
}

func dispatch(resp *speechpb.StreamingRecognizeResponse, cb stt.Callback) {
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		alt := r.GetAlternatives()[0]
		if r.GetIsFinal() {
			cb.OnFinal(alt.GetTranscript(), float64(alt.GetConfidence()))
		} else {
			cb.OnPartial(alt.GetTranscript())
		}
	}
}
