package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/health-assistant/backend/internal/config"
	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/language"
	speechmodel "github.com/zhouzirui/health-assistant/backend/internal/model/speech"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	chatService "github.com/zhouzirui/health-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/service/notify"
	"github.com/zhouzirui/health-assistant/backend/internal/service/qa"
	"github.com/zhouzirui/health-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/health-assistant/backend/internal/service/translate"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	offline bool
	timeout time.Duration
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assistantcli",
		Short: "Exercise the health assistant services from a terminal",
		Long: `assistantcli runs the health assistant pipeline without the HTTP server.

Commands:
  ask         Submit one question through translation and answering
  translate   Translate text with the fallback chain
  tts         Synthesize speech into an audio file
  asr         Transcribe an audio file

Configuration is read from the environment (and .env when present), the same
way the API server reads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				logWarning("无法加载 .env，改用系统环境变量: %v", err)
			}
		},
	}

	root.PersistentFlags().BoolVar(&offline, "offline", false, "Skip remote translation and answer services")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 45*time.Second, "Overall request timeout")

	root.AddCommand(
		newAskCmd(),
		newTranslateCmd(),
		newTTSCmd(),
		newASRCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("配置加载失败: %w", err)
	}
	return cfg, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// newChain keeps only the dictionary tier in offline mode.
func newChain(cfg *config.Config) *translate.Chain {
	if offline {
		return translate.NewChain(nil, nil)
	}
	client := utils.NewHTTPClient(cfg.Assistant.HTTPTimeout)
	return translate.NewChain(
		translate.NewPrimaryClient(cfg.Assistant.TranslateURL, translate.WithHTTPClient(client)),
		translate.NewMyMemoryClient(cfg.Assistant.MyMemoryURL, cfg.Assistant.MyMemoryEmail, translate.WithHTTPClient(client)),
		translate.WithProviderTimeout(cfg.Assistant.HTTPTimeout),
	)
}

func parseLanguageFlag(name, raw string) (language.Tag, error) {
	if raw == "" {
		return "", nil
	}
	tag, err := language.ParseTag(raw)
	if err != nil {
		return "", fmt.Errorf("invalid --%s: %w", name, err)
	}
	return tag, nil
}

// ---------------------------------------------------------------------------
// ask (one full conversation turn)
// ---------------------------------------------------------------------------

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Submit one question through translation and answering",
		Long: `Submit one question the way the chat screen does.

The question is translated to English when needed, answered, and the answer is
translated back to the language the question was asked in. Uses ASK_URL when
configured, otherwise the built-in question bank.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runAsk(cmd, cfg, strings.Join(args, " "))
		},
	}

	return cmd
}

func runAsk(cmd *cobra.Command, cfg *config.Config, question string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	bank, err := qa.NewDefaultService(cfg.Assistant.QAMinScore)
	if err != nil {
		return fmt.Errorf("加载问答库失败: %w", err)
	}
	var answerer answer.Answerer = bank
	if cfg.Assistant.AskURL != "" && !offline {
		answerer = answer.NewClient(cfg.Assistant.AskURL, answer.WithHTTPClient(utils.NewHTTPClient(cfg.Assistant.HTTPTimeout)))
		logInfo("answers from %s", cfg.Assistant.AskURL)
	}

	broker := events.NewBroker()
	queue := notify.NewQueue(cfg.Assistant.NotifyDuration, broker)
	history := chatService.NewHistory(broker)
	orch := chatService.NewOrchestrator(history, newChain(cfg), answerer, queue, broker)

	out, err := orch.Submit(ctx, question)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s[%s]%s %s\n", colorBlue, out.User.Language, colorReset, out.User.Text)
	if out.Bot.TranslatedQuestion != "" && out.Bot.TranslatedQuestion != out.Bot.OriginalQuestion {
		fmt.Fprintf(w, "  %s\n", out.Bot.TranslatedQuestion)
	}
	fmt.Fprintf(w, "%s[%s]%s %s\n", colorGreen, out.Bot.Language, colorReset, out.Bot.Text)

	if out.Failed {
		if n, ok := queue.Current(); ok {
			logWarning("%s: %s", n.Title, n.Description)
		}
		return fmt.Errorf("submission failed: %v", out.Err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text with the fallback chain",
		Long: `Translate text through the primary service, MyMemory and the medical
dictionary, in that order. The source language is detected when --from is
omitted and the target defaults to the other supported language.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runTranslate(cmd, newChain(cfg), strings.Join(args, " "), from, to)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Source language (en, bn)")
	cmd.Flags().StringVar(&to, "to", "", "Target language (en, bn)")

	return cmd
}

func runTranslate(cmd *cobra.Command, chain *translate.Chain, text, from, to string) error {
	source, err := parseLanguageFlag("from", from)
	if err != nil {
		return err
	}
	target, err := parseLanguageFlag("to", to)
	if err != nil {
		return err
	}
	if source == "" {
		source = language.Detect(text)
	}
	if target == "" {
		target = source.Other()
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	out := chain.Translate(ctx, text, source, target)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	if translate.IsMarked(out) {
		logWarning("translation fell back to a marker (%s->%s)", source, target)
	}
	return nil
}

// ---------------------------------------------------------------------------
// tts / asr (speech service smoke tests)
// ---------------------------------------------------------------------------

func newSpeechService(cfg *config.Config) (*speech.Service, error) {
	if !cfg.Speech.Enabled {
		return nil, fmt.Errorf("语音服务未启用，请先在环境变量中配置 SPEECH_* 凭证")
	}
	return speech.NewService(cfg.Speech.ModelConfig()), nil
}

func newTTSCmd() *cobra.Command {
	var lang, voice, outputPath string

	cmd := &cobra.Command{
		Use:   "tts <text>",
		Short: "Synthesize speech into an audio file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := newSpeechService(cfg)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			tag, err := parseLanguageFlag("lang", lang)
			if err != nil {
				return err
			}
			if tag == "" {
				tag = language.Detect(text)
			}
			if outputPath == "" {
				outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			logInfo("开始进行 TTS 测试: language=%s voice=%q", tag, voice)
			resp, err := svc.SynthesizeSpeech(ctx, speechmodel.SynthesisRequest{
				Text:     text,
				Language: tag,
				Voice:    voice,
			})
			if err != nil {
				return fmt.Errorf("TTS 调用失败: %w", err)
			}
			if err := os.WriteFile(outputPath, resp.Audio, 0o644); err != nil {
				return fmt.Errorf("写入音频文件失败: %w", err)
			}
			logSuccess("TTS 合成成功: 输出文件 %s, voice=%s, 时长=%dms", outputPath, resp.Voice, resp.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Language of the text (detected when omitted)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice ID (defaults to the per-language voice)")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output file (default tts-output-<unix>.mp3)")

	return cmd
}

func newASRCmd() *cobra.Command {
	var lang, format string
	var sampleRate int

	cmd := &cobra.Command{
		Use:   "asr <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := newSpeechService(cfg)
			if err != nil {
				return err
			}

			tag, err := parseLanguageFlag("lang", lang)
			if err != nil {
				return err
			}
			if tag == "" {
				tag = cfg.Assistant.CaptureLanguage
			}

			audio, err := readAudio(args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = audioFormatFromPath(args[0])
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			logInfo("开始进行 ASR 测试: format=%s language=%s", format, tag)
			resp, err := svc.TranscribeAudio(ctx, speechmodel.TranscriptionRequest{
				Audio:      audio,
				Format:     format,
				SampleRate: sampleRate,
				Language:   tag,
			})
			if err != nil {
				return fmt.Errorf("ASR 调用失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			logSuccess("ASR 识别成功: duration=%dms", resp.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Spoken language (defaults to CAPTURE_LANGUAGE)")
	cmd.Flags().StringVar(&format, "format", "", "Audio format (derived from the file extension)")
	cmd.Flags().IntVar(&sampleRate, "rate", 16000, "Sample rate in Hz")

	return cmd
}

func readAudio(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开音频文件失败: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func audioFormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "wav"
	}
	return ext
}
