package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/health-assistant/backend/internal/config"
	"github.com/zhouzirui/health-assistant/backend/internal/events"
	"github.com/zhouzirui/health-assistant/backend/internal/handler"
	"github.com/zhouzirui/health-assistant/backend/internal/i18n"
	"github.com/zhouzirui/health-assistant/backend/internal/service/ai"
	"github.com/zhouzirui/health-assistant/backend/internal/service/answer"
	"github.com/zhouzirui/health-assistant/backend/internal/service/capture"
	chatService "github.com/zhouzirui/health-assistant/backend/internal/service/chat"
	"github.com/zhouzirui/health-assistant/backend/internal/service/notify"
	"github.com/zhouzirui/health-assistant/backend/internal/service/playback"
	"github.com/zhouzirui/health-assistant/backend/internal/service/qa"
	"github.com/zhouzirui/health-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/health-assistant/backend/internal/service/translate"
	"github.com/zhouzirui/health-assistant/backend/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	i18n.SetUILanguage(cfg.Assistant.UILanguage)

	broker := events.NewBroker()
	notifications := notify.NewQueue(cfg.Assistant.NotifyDuration, broker)
	httpClient := utils.NewHTTPClient(cfg.Assistant.HTTPTimeout)

	// The local QA service always backs /ask. It also answers the chat unless
	// ASK_URL is set.
	qaService, err := qa.NewDefaultService(cfg.Assistant.QAMinScore)
	if err != nil {
		log.Fatalf("failed to load question bank: %v", err)
	}
	log.Printf("QA service loaded %d entries", qaService.Size())

	var answerer answer.Answerer = qaService
	if cfg.Assistant.AskURL != "" {
		answerer = answer.NewClient(cfg.Assistant.AskURL, answer.WithHTTPClient(httpClient))
		log.Printf("answers delegated to %s", cfg.Assistant.AskURL)
	}

	services := handler.Services{
		Notifications: notifications,
		Events:        broker,
		Answerer:      qaService,
	}

	// LLM translator behind /api/translate
	if cfg.AI.Enabled() {
		translator, err := newTranslator(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI translator: %v", err)
			log.Println("continuing without /api/translate - 请检查 Ark 模型相关环境变量")
		} else {
			services.Translator = translator
			log.Println("AI translator initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 翻译初始化")
	}

	var speechService *speech.Service
	if cfg.Speech.Enabled {
		speechService = speech.NewService(cfg.Speech.ModelConfig())
		services.Speech = speechService
		log.Println("Speech service initialized successfully")
	} else {
		log.Println("语音服务凭证未配置，跳过语音功能初始化")
	}

	chain := translate.NewChain(
		translate.NewPrimaryClient(cfg.Assistant.TranslateURL, translate.WithHTTPClient(httpClient)),
		translate.NewMyMemoryClient(cfg.Assistant.MyMemoryURL, cfg.Assistant.MyMemoryEmail, translate.WithHTTPClient(httpClient)),
		translate.WithProviderTimeout(cfg.Assistant.HTTPTimeout),
	)

	history := chatService.NewHistory(broker)
	orchestrator := chatService.NewOrchestrator(history, chain, answerer, notifications, broker)
	services.Orchestrator = orchestrator

	pb := playback.NewController(history, newSynthesizer(cfg, speechService, httpClient), newPlayer(cfg.Assistant.PlaybackCommand), notifications)
	defer pb.Close()
	services.Playback = pb

	captureCtrl := capture.NewController(newCapability(cfg.Assistant, speechService), orchestrator, notifications, broker, cfg.Assistant.CaptureLanguage)
	defer captureCtrl.Close()
	services.Capture = captureCtrl

	router := handler.NewRouter(services)

	startServer(ctx, cfg.Server, router)
}

func newTranslator(ctx context.Context, cfg config.AIConfig) (*ai.Translator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	return ai.NewTranslator(ctx, chatModel)
}

// newSynthesizer prefers SPEECH_SYNTH_URL, then the in-process speech service,
// then this server's own /api/speech endpoint.
func newSynthesizer(cfg *config.Config, speechService *speech.Service, client *http.Client) playback.Synthesizer {
	switch {
	case cfg.Assistant.SpeechSynthURL != "":
		return playback.NewHTTPSynthesizer(cfg.Assistant.SpeechSynthURL, client)
	case speechService != nil:
		return speechService
	default:
		return playback.NewHTTPSynthesizer(cfg.Server.LocalBaseURL(), client)
	}
}

func newPlayer(command string) playback.Player {
	if command == "" {
		log.Println("PLAYBACK_COMMAND 未配置，合成音频将被丢弃")
		return playback.DiscardPlayer{}
	}
	player := playback.NewExecPlayer(command)
	if !player.Available() {
		log.Printf("warning: playback command %q not found in PATH", command)
	}
	return player
}

func newCapability(cfg config.AssistantConfig, speechService *speech.Service) capture.Capability {
	if !cfg.CaptureEnabled {
		log.Println("speech capture disabled by configuration")
		return capture.Unsupported{}
	}
	if speechService == nil {
		log.Println("speech capture unavailable: speech service not configured")
		return capture.Unsupported{}
	}

	mic := capture.NewMicrophone(capture.RecorderConfig{
		Command:     cfg.CaptureCommand,
		InputFormat: cfg.CaptureInputFormat,
		InputDevice: cfg.CaptureInputDevice,
	}, speechService, cfg.CaptureMaxDuration)
	if !mic.Available() {
		log.Printf("warning: capture command %q not found in PATH", cfg.CaptureCommand)
	}
	return mic
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Health assistant backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
