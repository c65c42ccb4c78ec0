package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
)

const (
	defaultASREndpoint = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	resourceASRDuration   = "volc.bigasr.sauc.duration"
	resourceASRConcurrent = "volc.bigasr.sauc.concurrent"

	// 16kHz 16bit 单声道 200ms
	asrChunkBytes    = 6400
	asrChunkInterval = 200 * time.Millisecond

	asrSuccessCode = 20000000
)

var ErrNoAudio = errors.New("no audio to transcribe")

// ASRClient 火山引擎大模型识别客户端（流式输入，整句返回）
type ASRClient struct {
	config        *speechmodel.Config
	endpoint      string
	dialer        *websocket.Dialer
	chunkInterval time.Duration
}

type asrPayload struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrUtterance struct {
	Text string `json:"text"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info"`
}

// NewASRClient 创建识别客户端
func NewASRClient(cfg *speechmodel.Config) *ASRClient {
	endpoint := defaultASREndpoint
	if cfg != nil && strings.TrimSpace(cfg.ASREndpoint) != "" {
		endpoint = strings.TrimSpace(cfg.ASREndpoint)
	}
	return &ASRClient{
		config:        cfg,
		endpoint:      endpoint,
		dialer:        &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		chunkInterval: asrChunkInterval,
	}
}

// Transcribe 按 200ms 分帧上传音频，同时读取结果，服务端报错时提前停止上传
func (c *ASRClient) Transcribe(ctx context.Context, req speechmodel.TranscriptionRequest) (*speechmodel.Transcription, error) {
	if len(req.Audio) == 0 {
		return nil, ErrNoAudio
	}
	creds, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resource := resourceASRDuration
	if c.config.ConcurrentMode {
		resource = resourceASRConcurrent
	}

	header := http.Header{}
	header.Set("X-Api-App-Key", creds.appKey)
	header.Set("X-Api-Access-Key", creds.accessKey)
	header.Set("X-Api-Resource-Id", resource)
	header.Set("X-Api-Connect-Id", sessionID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial asr websocket: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[ASR] connected, logid=%s", logid)
		}
	}

	body, err := json.Marshal(buildASRPayload(req, sessionID))
	if err != nil {
		return nil, fmt.Errorf("marshal asr request: %w", err)
	}
	if err := c.writeFrame(conn, body, func(p []byte) *Frame { return clientRequest(p, CompressGzip) }); err != nil {
		return nil, fmt.Errorf("send asr request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	type result struct {
		out *speechmodel.Transcription
		err error
	}
	results := make(chan result, 1)
	go func() {
		out, err := receiveTranscript(conn, sessionID)
		results <- result{out, err}
	}()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- c.sendAudio(ctx, conn, req.Audio)
	}()

	for {
		select {
		case err := <-sendErr:
			if err != nil {
				return nil, fmt.Errorf("send audio: %w", err)
			}
			sendErr = nil
		case r := <-results:
			if r.err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return r.out, r.err
		}
	}
}

func buildASRPayload(req speechmodel.TranscriptionRequest, uid string) *asrPayload {
	p := &asrPayload{}
	p.User.UID = uid

	p.Audio.Format = req.Format
	if p.Audio.Format == "" {
		p.Audio.Format = "pcm"
	}
	p.Audio.Language = req.Language.Locale()
	p.Audio.Codec = "raw"
	p.Audio.Rate = req.SampleRate
	if p.Audio.Rate <= 0 {
		p.Audio.Rate = 16000
	}
	p.Audio.Bits = 16
	p.Audio.Channel = 1

	p.Request.ModelName = "bigmodel"
	p.Request.EnableITN = true
	p.Request.EnablePunc = true
	p.Request.ShowUtterances = true
	p.Request.ResultType = "full"
	p.Request.EndWindowSize = 800
	return p
}

func (c *ASRClient) writeFrame(conn *websocket.Conn, payload []byte, build func([]byte) *Frame) error {
	packed, err := compress(payload, CompressGzip)
	if err != nil {
		return err
	}
	data, err := build(packed).MarshalBinary()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// sendAudio 首帧占用序号 1，音频从 2 开始，最后一帧序号取负
func (c *ASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	seq := int32(2)
	for start := 0; start < len(audio); start += asrChunkBytes {
		end := min(start+asrChunkBytes, len(audio))
		last := end == len(audio)

		chunk := audio[start:end]
		current := seq
		if err := c.writeFrame(conn, chunk, func(p []byte) *Frame { return audioChunk(p, current, last, CompressGzip) }); err != nil {
			return err
		}
		seq++
		if last {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.chunkInterval):
		}
	}
	return nil
}

func receiveTranscript(conn *websocket.Conn, sessionID string) (*speechmodel.Transcription, error) {
	var (
		text     string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read asr response: %w", err)
		}
		f, err := ParseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode asr frame: %w", err)
		}

		switch f.Type {
		case TypeError:
			payload, _ := payloadOf(f)
			return nil, fmt.Errorf("asr error %d: %s", f.ErrorCode, payload)

		case TypeFullServerResponse:
			payload, err := payloadOf(f)
			if err != nil {
				return nil, fmt.Errorf("decompress asr frame: %w", err)
			}
			var msg asrServerMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Printf("[ASR] unreadable server payload: %v", err)
				continue
			}
			if msg.Code != 0 && msg.Code != asrSuccessCode {
				return nil, fmt.Errorf("asr api error %d: %s", msg.Code, msg.Message)
			}

			candidate := msg.Result.Text
			if candidate == "" {
				candidate = joinUtterances(msg.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}

			if f.Last() || msg.Sequence < 0 {
				if text == "" {
					log.Printf("[ASR] empty transcript for session %s", sessionID)
				}
				return &speechmodel.Transcription{
					SessionID: sessionID,
					Text:      strings.TrimSpace(text),
					Duration:  duration,
					RequestID: sessionID,
					CreatedAt: time.Now(),
				}, nil
			}
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
