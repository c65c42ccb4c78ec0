package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/health-assistant/backend/internal/language"
	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
)

const defaultTTSEndpoint = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

// 火山引擎 TTS 资源 ID
const (
	resourceTTSDefault = "volc.service_type.10029"
	resourceTTSMega    = "volc.megatts.default"
	resourceTTSSeed    = "seed-tts-2.0"
)

var (
	ErrEmptyText  = errors.New("synthesis text is empty")
	ErrEmptyAudio = errors.New("synthesis returned no audio")
)

// voiceAliases 常用别名到官方音色
var voiceAliases = map[string]string{
	"en_default":      "en_female_amy_jupiter_bigtts",
	"en_female":       "en_female_amy_jupiter_bigtts",
	"en_male":         "en_male_glen_emo_v2_mars_bigtts",
	"multilingual":    "multi_female_shuangkuaisisi_moon_bigtts",
	"bn_default":      "multi_female_shuangkuaisisi_moon_bigtts",
	"default_english": "en_female_amy_jupiter_bigtts",
}

// TTSClient 火山引擎单向流式合成客户端
type TTSClient struct {
	config   *speechmodel.Config
	endpoint string
	dialer   *websocket.Dialer
}

type ttsPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// NewTTSClient 创建合成客户端
func NewTTSClient(cfg *speechmodel.Config) *TTSClient {
	endpoint := defaultTTSEndpoint
	if cfg != nil && strings.TrimSpace(cfg.TTSEndpoint) != "" {
		endpoint = strings.TrimSpace(cfg.TTSEndpoint)
	}
	return &TTSClient{
		config:   cfg,
		endpoint: endpoint,
		dialer:   &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
	}
}

// Synthesize 依次尝试每个音色与兼容的资源 ID，仅在服务端报告资源不匹配时换下一个
func (c *TTSClient) Synthesize(ctx context.Context, req speechmodel.SynthesisRequest) (*speechmodel.Synthesis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	creds, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" || format == "wav" {
		format = "mp3"
	}

	voices := speakerCandidates(req.Voice, c.config.VoiceFor(req.Language))
	var lastMismatch error
	for vi, voice := range voices {
		for ri, resource := range resourceCandidates(voice) {
			out, err := c.synthesizeOnce(ctx, req, creds, voice, resource, format)
			if err == nil {
				if vi > 0 || ri > 0 {
					log.Printf("[TTS] voice %s succeeded with fallback resource %s", voice, resource)
				}
				return out, nil
			}
			if !isResourceMismatch(err) {
				return nil, err
			}
			log.Printf("[TTS] voice %s resource %s mismatch: %v", voice, resource, err)
			lastMismatch = err
		}
	}

	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("tts: no usable voice among %v", voices)
}

func (c *TTSClient) synthesizeOnce(ctx context.Context, req speechmodel.SynthesisRequest, creds credentials, voice, resource, format string) (*speechmodel.Synthesis, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", creds.appKey)
	header.Set("X-Api-Access-Key", creds.accessKey)
	header.Set("X-Api-Resource-Id", resource)
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dial tts websocket: %w", err)
	}
	defer conn.Close()
	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			log.Printf("[TTS] connected, logid=%s", logid)
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	uid := strings.TrimSpace(req.SessionID)
	if uid == "" {
		uid = connectID
	}
	body, err := json.Marshal(c.buildPayload(req, uid, voice, format))
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}
	frame, err := clientRequest(body, CompressNone).MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("send tts request: %w", err)
	}

	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read tts response: %w", err)
		}
		f, err := ParseFrame(data)
		if err != nil {
			return nil, fmt.Errorf("decode tts frame: %w", err)
		}
		payload, err := payloadOf(f)
		if err != nil {
			return nil, fmt.Errorf("decompress tts frame: %w", err)
		}

		switch f.Type {
		case TypeError:
			return nil, fmt.Errorf("tts error %d: %s", f.ErrorCode, payload)

		case TypeAudioOnlyResponse:
			audio.Write(payload)

		case TypeFullServerResponse:
			var msg ttsServerMessage
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &msg); err != nil {
					log.Printf("[TTS] unreadable server payload: %v", err)
				} else {
					if msg.Code != 0 && msg.Code != 3000 {
						return nil, fmt.Errorf("tts api error %d: %s", msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if d, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
						duration = d
					}
					if msg.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(msg.Data)
						if err != nil {
							return nil, fmt.Errorf("decode tts audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			finished := (f.hasEvent() && f.Event == EventSessionFinished) || f.Last() || msg.Sequence < 0
			if !finished {
				continue
			}
			if audio.Len() == 0 {
				return nil, ErrEmptyAudio
			}
			if reqID == "" {
				reqID = connectID
			}
			return &speechmodel.Synthesis{
				SessionID: uid,
				Audio:     audio.Bytes(),
				Duration:  duration,
				Format:    format,
				Voice:     voice,
				RequestID: reqID,
				CreatedAt: time.Now(),
			}, nil

		default:
			log.Printf("[TTS] ignoring frame type %d", f.Type)
		}
	}
}

func (c *TTSClient) buildPayload(req speechmodel.SynthesisRequest, uid, voice, format string) *ttsPayload {
	p := &ttsPayload{}
	p.User.UID = uid
	p.ReqParams.Speaker = voice
	p.ReqParams.Text = req.Text
	p.ReqParams.AudioParams.Format = format
	p.ReqParams.AudioParams.SampleRate = 24000
	if s := c.config.TTSSpeed; s > 0 && s != 1 {
		p.ReqParams.AudioParams.SpeedRatio = s
	}
	if v := c.config.TTSVolume; v > 0 && v != 1 {
		p.ReqParams.AudioParams.VolumeRatio = v
	}
	if req.Language != "" {
		p.ReqParams.Language = ttsLanguage(req.Language)
	}
	p.ReqParams.Additions = `{"disable_markdown_filter":false}`
	return p
}

// ttsLanguage 合成接口使用的语言代码
func ttsLanguage(tag language.Tag) string {
	switch tag {
	case language.Bengali:
		return "bn"
	default:
		return "en"
	}
}

// resourceCandidates 按音色推断可用的资源 ID
func resourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if strings.HasPrefix(voice, "S_") {
		return []string{resourceTTSMega}
	}
	lower := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "jupiter", "mars", "moon", "venus", "uranus"} {
		if strings.Contains(lower, hint) {
			return []string{resourceTTSSeed, resourceTTSDefault}
		}
	}
	return []string{resourceTTSDefault, resourceTTSSeed}
}

// speakerCandidates 请求音色优先，其次是语言默认音色；别名展开并去重
func speakerCandidates(requested, fallback string) []string {
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if mapped, ok := voiceAliases[strings.ToLower(v)]; ok {
			v = mapped
		}
		for _, existing := range out {
			if strings.EqualFold(existing, v) {
				return
			}
		}
		out = append(out, v)
	}
	add(requested)
	add(fallback)
	if len(out) == 0 {
		out = append(out, voiceAliases["en_default"])
	}
	return out
}

func isResourceMismatch(err error) bool {
	return err != nil && strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
