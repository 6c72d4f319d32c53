// Package services – ConversationService
//
// ConversationService owns the conversation directory (inbox), the
// get-or-create entry point used by "message seller" buttons and purchase
// initiation, and the thread header. Callers are always one of the two
// participants; everyone else is refused with ErrForbidden.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry the conversation and user identifiers.

package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationService manages conversations between two users.
type ConversationService struct {
	DB *gorm.DB
}

// Directory returns the caller's conversations, most recent activity first,
// each with the other participant's public profile and an unread count.
func (s *ConversationService) Directory(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Directory",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	items, err := repo.ListConversationSummaries(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("conversations.count", len(items)))
	return items, nil
}

// Open returns the conversation between userID and otherID for the given
// context, creating it on first use. created reports whether a row was
// inserted. The argument order of the two participants does not matter.
func (s *ConversationService) Open(ctx context.Context, userID, otherID, ctxType, ctxID string) (c *domain.Conversation, created bool, err error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Open",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("other.id", otherID),
			attribute.String("context.type", ctxType),
		),
	)
	defer span.End()

	otherID = strings.TrimSpace(otherID)
	ctxType = strings.ToLower(strings.TrimSpace(ctxType))
	ctxID = strings.TrimSpace(ctxID)
	if otherID == "" {
		return nil, false, ErrInvalidInput
	}
	if otherID == userID {
		return nil, false, ErrSelfConversation
	}
	switch ctxType {
	case "":
		if ctxID != "" {
			return nil, false, ErrInvalidInput
		}
	case domain.ContextProduct, domain.ContextShop:
		if ctxID == "" {
			return nil, false, ErrInvalidInput
		}
	default:
		return nil, false, ErrInvalidInput
	}

	return repo.GetOrCreateConversation(ctx, s.DB, userID, otherID, ctxType, ctxID)
}

// Header returns the conversation with the other participant's identity.
func (s *ConversationService) Header(ctx context.Context, userID, conversationID string) (*domain.ConversationHeader, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Header",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	c, err := participantConversation(ctx, s.DB, conversationID, userID)
	if err != nil {
		return nil, err
	}
	otherID := c.OtherParticipant(userID)
	other := domain.PublicProfile{ID: otherID}
	p, err := repo.GetProfile(ctx, s.DB, otherID)
	switch {
	case err == nil:
		other.FullName, other.AvatarURL = p.FullName, p.AvatarURL
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}
	return &domain.ConversationHeader{Conversation: *c, Other: other}, nil
}

// participantConversation loads a conversation and checks that userID takes
// part in it.
func participantConversation(ctx context.Context, db *gorm.DB, conversationID, userID string) (*domain.Conversation, error) {
	c, err := repo.GetConversation(ctx, db, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, ErrForbidden
	}
	return c, nil
}

// appendMessage stores a message and bumps the conversation preview. It is
// meant to run inside the caller's transaction.
func appendMessage(ctx context.Context, tx *gorm.DB, conversationID, senderID string, body domain.Content, productName string) (*domain.Message, error) {
	m, err := repo.CreateMessage(ctx, tx, conversationID, senderID, body.Encode())
	if err != nil {
		return nil, err
	}
	if err := repo.TouchConversation(ctx, tx, conversationID, Preview(body, productName), m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}
