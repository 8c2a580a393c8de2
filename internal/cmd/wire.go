package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/assistant"
	"github.com/rudransh-shrivastava/peer-assist/internal/config"
	"github.com/rudransh-shrivastava/peer-assist/internal/db"
	"github.com/rudransh-shrivastava/peer-assist/internal/logger"
	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/relay"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
	"github.com/rudransh-shrivastava/peer-assist/internal/store"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport/webrtc"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}

	log := logger.NewLogger()
	if err := logger.SetLevel(log, cfg.LogLevel); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

type assistantDeps struct {
	db  *gorm.DB
	rag *assistant.RAG
}

func (d *assistantDeps) Close() error {
	return db.Close(d.db)
}

func openAssistant(cfg config.Config, log *logrus.Logger) (*assistantDeps, error) {
	completer, err := assistant.NewAnthropic(assistant.AnthropicConfig{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: cfg.AnthropicBaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}

	gormDB, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	rag, err := assistant.New(assistant.Options{
		Memory:    store.NewMemoryStore(gormDB),
		Actions:   store.NewActionStore(gormDB),
		Completer: completer,
		Logger:    log,
	})
	if err != nil {
		_ = db.Close(gormDB)
		return nil, err
	}

	return &assistantDeps{db: gormDB, rag: rag}, nil
}

const relayCheckTimeout = 3 * time.Second

// checkRelay warns when the signaling relay does not answer its health route.
// The session keeps polling regardless, so a relay started later still works.
func checkRelay(ctx context.Context, client *relay.Client, log *logrus.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, relayCheckTimeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Warnf("Signaling relay is not reachable yet: %v", err)
		return false
	}
	log.Debug("Signaling relay is up")
	return true
}

func newSession(ctx context.Context, cfg config.Config, role session.Role, handlers session.Handlers, fallback session.HandlerFunc, log *logrus.Logger) (*session.Session, error) {
	if err := cfg.ValidatePeer(); err != nil {
		return nil, err
	}

	client := relay.NewClient(cfg.SignalURL, nil)
	checkRelay(ctx, client, log)

	sess, err := session.New(session.Options{
		ID:                cfg.ClientID,
		Role:              role,
		Signaler:          client,
		Peers:             webrtc.NewFactory(webrtc.Options{ICEServers: cfg.ICEServers}),
		Codec:             protocol.NewCodec(cfg.Format()),
		Handlers:          handlers,
		Fallback:          fallback,
		ReconnectInterval: cfg.ReconnectInterval,
		PollInterval:      cfg.PollInterval,
		PulseInterval:     cfg.PulseInterval,
		ReplyTimeout:      cfg.ReplyTimeout,
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}
