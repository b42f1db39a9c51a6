package google

import (
	"errors"
	"io"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "es-ES" {
		t.Errorf("expected default language 'es-ES', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.InterimResults)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"AMR", speechpb.RecognitionConfig_AMR},
		{"AMR_WB", speechpb.RecognitionConfig_AMR_WB},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"SPEEX_WITH_HEADER_BYTE", speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // lowercase -> fallback
		{"invalid", speechpb.RecognitionConfig_LINEAR16},  // fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStreamingConfig(t *testing.T) {
	a := &Adapter{cfg: Config{
		LanguageCode:   "es-MX",
		SampleRateHz:   8000,
		InterimResults: true,
		AudioEncoding:  "MULAW",
		PhraseHints:    []string{"Sede Norte"},
	}}

	sc := a.streamingConfig()
	if sc.GetConfig().GetLanguageCode() != "es-MX" {
		t.Errorf("expected es-MX, got %s", sc.GetConfig().GetLanguageCode())
	}
	if sc.GetConfig().GetEncoding() != speechpb.RecognitionConfig_MULAW {
		t.Errorf("expected MULAW, got %v", sc.GetConfig().GetEncoding())
	}
	if !sc.GetInterimResults() {
		t.Error("expected interim results")
	}
	if len(sc.GetConfig().GetSpeechContexts()) != 1 {
		t.Errorf("expected phrase hints, got %v", sc.GetConfig().GetSpeechContexts())
	}
}

type recordingCallback struct {
	partials []string
	finals   []string
	ends     int
	errs     []error
}

func (c *recordingCallback) OnPartial(text string)          { c.partials = append(c.partials, text) }
func (c *recordingCallback) OnFinal(text string, _ float64) { c.finals = append(c.finals, text) }
func (c *recordingCallback) OnEnd()                         { c.ends++ }
func (c *recordingCallback) OnError(err error)              { c.errs = append(c.errs, err) }

type fakeStream struct {
	responses []*speechpb.StreamingRecognizeResponse
	err       error
}

func (s *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	if len(s.responses) == 0 {
		return nil, s.err
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

func result(text string, final bool) *speechpb.StreamingRecognitionResult {
	return &speechpb.StreamingRecognitionResult{
		IsFinal:      final,
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text, Confidence: 0.9}},
	}
}

func TestListen_DispatchesAndEnds(t *testing.T) {
	stream := &fakeStream{
		responses: []*speechpb.StreamingRecognizeResponse{
			{Results: []*speechpb.StreamingRecognitionResult{result("cita", false)}},
			{Results: []*speechpb.StreamingRecognitionResult{{IsFinal: true}}},
			{Results: []*speechpb.StreamingRecognitionResult{result("cita con juan", true)}},
		},
		err: io.EOF,
	}
	cb := &recordingCallback{}
	(&Adapter{}).listen(stream, cb)

	if len(cb.partials) != 1 || cb.partials[0] != "cita" {
		t.Errorf("expected one partial, got %v", cb.partials)
	}
	if len(cb.finals) != 1 || cb.finals[0] != "cita con juan" {
		t.Errorf("expected one final, got %v", cb.finals)
	}
	if cb.ends != 1 || len(cb.errs) != 0 {
		t.Errorf("expected end without error, got ends=%d errs=%v", cb.ends, cb.errs)
	}
}

func TestListen_ReportsErrors(t *testing.T) {
	boom := errors.New("unavailable")
	cb := &recordingCallback{}
	(&Adapter{}).listen(&fakeStream{err: boom}, cb)

	if len(cb.errs) != 1 || !errors.Is(cb.errs[0], boom) {
		t.Errorf("expected error callback, got %v", cb.errs)
	}
	if cb.ends != 0 {
		t.Errorf("expected no end on error, got %d", cb.ends)
	}
}
