package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"voice-appointment-service/internal/observability/logging"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// At 16kHz 16-bit mono = 32000 bytes/second
// 100ms chunks = 3200 bytes
const chunkSize = 3200
const chunkIntervalMs = 100

// How long to wait after "ended" for a disambiguation question.
const questionGrace = 500 * time.Millisecond

type frame struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Final   bool            `json:"final,omitempty"`
	Choice  string          `json:"choice,omitempty"`
	Draft   json.RawMessage `json:"draft,omitempty"`
	Error   string          `json:"error,omitempty"`
	Session string          `json:"sessionId,omitempty"`
}

func main() {
	serverAddr := flag.String("server", "localhost:8080", "HTTP server address")
	audioFile := flag.String("audio", "", "Path to WAV file (16kHz 16-bit mono); empty sends -text instead")
	text := flag.String("text", "cita con juan mañana a las 9 en la sede norte", "Transcript to dictate when no audio is given")
	client := flag.String("client", "cli", "Client ID")
	choice := flag.String("choice", "", "Answer to the meridiem question: morning or afternoon")
	submit := flag.Bool("submit", false, "Commit the draft once the session settles")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logging.Init(logCfg)

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/v1/sessions/ws", RawQuery: "client=" + url.QueryEscape(*client)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", u.String()).Msg("Failed to connect")
	}
	defer conn.Close()
	log.Info().Str("url", u.String()).Msg("Connected")

	frames := make(chan frame, 16)
	go read(conn, frames)

	send(conn, frame{Type: "start"})
	if *audioFile != "" {
		streamAudio(conn, *audioFile)
	} else {
		dictate(conn, *text)
	}
	send(conn, frame{Type: "stop"})

	var grace <-chan time.Time
	settled := func() {
		if *submit {
			send(conn, frame{Type: "submit"})
			return
		}
		closeAndExit(conn)
	}

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			switch f.Type {
			case "ended":
				grace = time.After(questionGrace)
			case "disambiguation":
				grace = nil
				if *choice == "" {
					log.Warn().Msg("Time is ambiguous, rerun with -choice morning or -choice afternoon")
					send(conn, frame{Type: "cancel"})
					settled()
					continue
				}
				send(conn, frame{Type: "choose", Choice: *choice})
			case "resolved":
				if len(f.Draft) > 0 {
					settled()
					continue
				}
				send(conn, frame{Type: "confirm"})
			case "committed", "conflict", "invalid":
				closeAndExit(conn)
			}
		case <-grace:
			grace = nil
			settled()
		}
	}
}

func read(conn *websocket.Conn, out chan<- frame) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Connection closed")
			}
			return
		}
		log.Info().RawJSON("frame", data).Msg("Received")
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Warn().Err(err).Msg("Undecodable frame")
			continue
		}
		out <- f
	}
}

func send(conn *websocket.Conn, f frame) {
	if err := conn.WriteJSON(f); err != nil {
		log.Fatal().Err(err).Str("type", f.Type).Msg("Failed to send frame")
	}
}

func closeAndExit(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	os.Exit(0)
}

// dictate sends the transcript word by word as partials, then once as final.
func dictate(conn *websocket.Conn, text string) {
	words := strings.Fields(text)
	for i := 1; i < len(words); i++ {
		send(conn, frame{Type: "transcript", Text: strings.Join(words[:i], " ")})
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}
	send(conn, frame{Type: "transcript", Text: text, Final: true})
}

func streamAudio(conn *websocket.Conn, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audio file")
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatal().Err(err).Msg("Failed to read WAV header")
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal().Msg("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])
	log.Info().
		Uint16("format", audioFormat).
		Uint16("channels", numChannels).
		Uint32("sampleRate", sampleRate).
		Uint16("bitsPerSample", bitsPerSample).
		Msg("WAV file")

	if audioFormat != 1 { // PCM
		log.Fatal().Msg("Only PCM format supported")
	}
	if sampleRate != 16000 {
		log.Warn().Uint32("sampleRate", sampleRate).Msg("Expected 16000 Hz")
	}

	chunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	start := time.Now()
	for {
		n, err := f.Read(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read audio")
		}
		chunkNum++
		totalBytes += int64(n)
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk[:n]); err != nil {
			log.Fatal().Err(err).Msg("Failed to send audio")
		}
		if chunkNum%10 == 0 {
			log.Info().Int("chunk", chunkNum).Int64("bytes", totalBytes).Msg("Streaming")
		}
		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}
	log.Info().Int("chunks", chunkNum).Int64("bytes", totalBytes).Dur("elapsed", time.Since(start)).Msg("Finished streaming")
}
