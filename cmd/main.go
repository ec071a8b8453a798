package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ai-chat-assistant-service/internal/app"
	"ai-chat-assistant-service/internal/chat"
	"ai-chat-assistant-service/internal/config"
	"ai-chat-assistant-service/internal/events"
	"ai-chat-assistant-service/internal/history"
	gatewayhttp "ai-chat-assistant-service/internal/http"
	"ai-chat-assistant-service/internal/observability"
	"ai-chat-assistant-service/internal/sessionstore"
	"ai-chat-assistant-service/internal/speech"
	"ai-chat-assistant-service/internal/speech/google"
	"ai-chat-assistant-service/internal/speech/mock"
	"ai-chat-assistant-service/internal/synth"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}
	defer application.Shutdown()

	// Kafka publisher with separate topics for committed dictation
	// transcripts and completed chat turns
	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicTurn:       cfg.Kafka.TopicTurn,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	store := sessionstore.New(&sessionstore.Config{
		RedisEnabled: cfg.Session.RedisEnabled,
		RedisAddr:    cfg.Session.RedisAddr,
		Prefix:       cfg.Session.RedisPrefix,
		TTL:          cfg.Session.TTL,
	})

	chatClient := chat.New(chat.Options{
		AssistantBaseURL: cfg.Backend.AssistantBaseURL,
		APIBaseURL:       cfg.Backend.APIBaseURL,
		RequestTimeout:   cfg.Backend.RequestTimeout,
		ChunkDelay:       cfg.Backend.ChunkDelay,
		Language:         cfg.Backend.Language,
		ResponseLanguage: cfg.Backend.ResponseLanguage,
		History:          history.New(cfg.Backend.APIBaseURL, cfg.Backend.RequestTimeout),
		Store:            store,
		Synth:            synthProvider(cfg),
		Publisher:        publisher,
	})

	handler := gatewayhttp.NewHandler(chatClient, publisher, speechFactory(cfg))

	obsServer := observability.NewServer(":"+cfg.Service.ObservabilityPort, map[string]observability.ReadinessCheck{
		"assistant-backend": backendCheck(cfg.Backend.AssistantBaseURL),
	})
	obsServer.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses manage their own lifetime
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Service.HTTPPort).Msg("Chat assistant gateway started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("observability server shutdown failed")
	}
}

// backendCheck reports whether the assistant backend answers at all. Any
// HTTP response counts; only transport failures mark the gateway unready.
func backendCheck(baseURL string) observability.ReadinessCheck {
	client := &http.Client{Timeout: 3 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
}

// speechFactory selects the server-side recognizer from configuration.
// A nil factory leaves recognition to the connecting client.
func speechFactory(cfg *config.Configuration) gatewayhttp.ProviderFactory {
	switch cfg.Speech.Provider {
	case "mock":
		return func() speech.Provider { return mock.New() }
	case "google":
		return func() speech.Provider {
			p, err := google.New(context.Background(), google.Config{
				LanguageCode:   cfg.Speech.LanguageCode,
				SampleRateHz:   cfg.Speech.SampleRateHz,
				InterimResults: cfg.Speech.InterimResults,
			})
			if err != nil {
				log.Error().Err(err).Msg("google recognizer unavailable")
				return nil
			}
			return p
		}
	default:
		return nil
	}
}

// synthProvider selects the text-to-speech backend from configuration.
func synthProvider(cfg *config.Configuration) synth.Provider {
	switch cfg.Synthesis.Provider {
	case "elevenlabs":
		p, err := synth.NewElevenLabsClient(cfg.Synthesis.APIKey, cfg.Synthesis.VoiceID, cfg.Synthesis.ModelID, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid synthesis configuration")
		}
		return p
	default:
		return synth.Null{}
	}
}
