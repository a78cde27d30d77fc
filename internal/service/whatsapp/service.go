package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/config"
	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/commands"
	client "github.com/mamadbah2/seedbank/pkg/clients/whatsapp"
)

const (
	sendTimeout = 10 * time.Second
	// seenCapacity bounds the message IDs remembered for duplicate detection.
	seenCapacity = 1024
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService runs staff chat commands received through the WhatsApp
// Cloud API and sends the replies and alert digests.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	logger     *zap.Logger

	// Meta delivers at least once. A redelivered withdraw must not be applied twice.
	seenMu    sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
		seen:       make(map[string]struct{}, seenCapacity),
	}
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook answers every new message in the payload. Receipts and
// already-seen message IDs are skipped. The first failed reply is returned
// after all messages have been handled.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, msg := range payload.Messages() {
		if !s.markSeen(msg.ID) {
			s.logger.Info("duplicate message skipped", zap.String("message_id", msg.ID), zap.String("from", msg.From))
			continue
		}
		if err := s.handleInboundMessage(ctx, msg); err != nil {
			s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// handleInboundMessage runs the command and always answers the sender. Command
// failures become the reply; only a failed send is returned as an error.
func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	reply := commands.HelpText

	if text := msg.CommandText(); text != "" {
		cmd := models.ParseCommand(text)
		s.logger.Info("parsed inbound command",
			zap.String("from", msg.From),
			zap.String("command", string(cmd.Type)),
			zap.Strings("args", cmd.Args))

		var err error
		reply, err = s.dispatcher.HandleCommand(ctx, cmd, msg.From)
		if err != nil {
			s.logger.Info("command rejected", zap.String("from", msg.From), zap.String("command", string(cmd.Type)), zap.Error(err))
			reply = commands.ReplyForError(err)
		}
	} else {
		s.logger.Debug("message without text, sending help", zap.String("from", msg.From), zap.String("type", msg.Type))
	}

	return s.send(ctx, msg.From, reply, false)
}

// SendOutbound pushes a staff broadcast or the alert digest.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, preview bool) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{To: to, Body: body, PreviewURL: preview}); err != nil {
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	return nil
}

// markSeen records id and reports whether it was new. Messages without an ID
// are always treated as new.
func (s *MetaWhatsAppService) markSeen(id string) bool {
	if id == "" {
		return true
	}

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}
	if len(s.seenOrder) >= seenCapacity {
		delete(s.seen, s.seenOrder[0])
		s.seenOrder = s.seenOrder[1:]
	}
	s.seen[id] = struct{}{}
	s.seenOrder = append(s.seenOrder, id)
	return true
}
