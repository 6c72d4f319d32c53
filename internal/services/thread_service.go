// Package services – ThreadService
//
// ThreadService serves one conversation thread: its ordered history (full or
// after a watermark), read receipts, the orders negotiated in it, and
// sending text or image messages. Message bodies are returned as tagged
// variants with order references resolved against the conversation's
// orders loaded in the same call.

package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/observability"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ThreadService coordinates message persistence for a single conversation.
type ThreadService struct {
	DB    *gorm.DB
	Store storage.Store
	Log   zerolog.Logger

	// MaxMessageRunes bounds text bodies and captions; zero disables it.
	MaxMessageRunes int
}

// clock returns the current time the way rows are stored.
var clock = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Messages returns the thread history as seen by userID. With a non-nil
// after only messages created strictly later are returned.
func (s *ThreadService) Messages(ctx context.Context, userID, conversationID string, after *time.Time) ([]domain.MessageView, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "Messages",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
			attribute.Bool("incremental", after != nil),
		),
	)
	defer span.End()

	if _, err := participantConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, err
	}

	var (
		msgs []domain.Message
		err  error
	)
	if after != nil {
		msgs, err = repo.ListMessagesAfter(ctx, s.DB, conversationID, *after)
	} else {
		msgs, err = repo.ListMessages(ctx, s.DB, conversationID)
	}
	if err != nil {
		return nil, err
	}

	orders := map[string]domain.ChatOrder{}
	if hasOrderRefs(msgs) {
		list, err := repo.ListOrdersByConversation(ctx, s.DB, conversationID)
		if err != nil {
			return nil, err
		}
		for _, o := range list {
			orders[o.ID] = o
		}
	}

	out := make([]domain.MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.NewMessageView(m, orders, userID))
	}
	span.SetAttributes(attribute.Int("messages.count", len(out)))
	return out, nil
}

func hasOrderRefs(msgs []domain.Message) bool {
	for _, m := range msgs {
		if domain.ParseContent(m.Content).Kind == domain.KindOrder {
			return true
		}
	}
	return false
}

// MarkRead stamps every inbound unread message of the thread as read and
// returns how many rows changed. Repeating the call is harmless.
func (s *ThreadService) MarkRead(ctx context.Context, userID, conversationID string) (int64, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if _, err := participantConversation(ctx, s.DB, conversationID, userID); err != nil {
		return 0, err
	}
	n, err := repo.MarkMessagesRead(ctx, s.DB, conversationID, userID, clock())
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("messages.marked", n))
	return n, nil
}

// Orders lists the conversation's orders with the actions userID may take.
func (s *ThreadService) Orders(ctx context.Context, userID, conversationID string) ([]domain.OrderView, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "Orders",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if _, err := participantConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, err
	}
	list, err := repo.ListOrdersByConversation(ctx, s.DB, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, domain.NewOrderView(o, userID))
	}
	return out, nil
}

// SendText validates and stores a plain text message.
func (s *ThreadService) SendText(ctx context.Context, userID, conversationID, text string) (*domain.MessageView, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "SendText",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	text = normalizeText(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}
	if domain.HasReservedPrefix(text) {
		return nil, ErrReservedPrefix
	}
	if _, err := participantConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, err
	}

	m, err := s.append(ctx, conversationID, userID, domain.TextContent(text))
	if err != nil {
		return nil, err
	}
	v := domain.NewMessageView(*m, nil, userID)
	return &v, nil
}

// SendImage validates an image, uploads it to the chat attachments bucket
// and stores an image message. Nothing is uploaded unless the caller takes
// part in the conversation and the bytes are an accepted image; a failed
// upload stores no message.
func (s *ThreadService) SendImage(ctx context.Context, userID, conversationID string, data []byte, caption string) (*domain.MessageView, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "SendImage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
			attribute.Int("image.bytes", len(data)),
		),
	)
	defer span.End()

	caption = normalizeText(caption)
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(caption) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}
	if _, err := storage.ValidateImage(data); err != nil {
		return nil, err
	}
	if _, err := participantConversation(ctx, s.DB, conversationID, userID); err != nil {
		return nil, err
	}

	obj, err := storage.UploadImage(ctx, s.Store, storage.BucketChatAttachments, data)
	if err != nil {
		return nil, err
	}
	m, err := s.append(ctx, conversationID, userID, domain.ImageContent(obj.URL, caption))
	if err != nil {
		if derr := s.Store.Delete(ctx, obj.Key); derr != nil {
			s.Log.Warn().Err(derr).Str("key", obj.Key).Msg("orphaned chat attachment")
		}
		return nil, err
	}
	v := domain.NewMessageView(*m, nil, userID)
	return &v, nil
}

func (s *ThreadService) append(ctx context.Context, conversationID, senderID string, body domain.Content) (*domain.Message, error) {
	var m *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = appendMessage(ctx, tx, conversationID, senderID, body, "")
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	observability.MessagesSent.WithLabelValues(string(body.Kind)).Inc()
	return m, nil
}
