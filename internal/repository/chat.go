package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flicky/farm-market-api/internal/model"
)

var ErrChatMissing = errors.New("chat does not exist")

type ChatRepository interface {
	// GetOrCreate returns the chat between a and b regardless of argument
	// order, creating it on first contact.
	GetOrCreate(ctx context.Context, a, b uuid.UUID) (*model.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Chat, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Chat, error)
	// AppendMessage stores msg after the chat's last message. It fails with
	// ErrChatMissing if the chat is gone.
	AppendMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, chatID uuid.UUID) ([]model.Message, error)
}

type chatDoc struct {
	ID            string    `bson:"_id"`
	PairKey       string    `bson:"pair_key"`
	Participants  []string  `bson:"participants"`
	MessageCount  int64     `bson:"message_count"`
	LastMessageAt time.Time `bson:"last_message_at"`
	CreatedAt     time.Time `bson:"created_at"`
}

type messageDoc struct {
	ID        string    `bson:"_id"`
	ChatID    string    `bson:"chat_id"`
	Seq       int64     `bson:"seq"`
	SenderID  string    `bson:"sender_id"`
	Content   string    `bson:"content"`
	Kind      string    `bson:"kind"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoChatRepo struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	now      func() time.Time
}

func NewChatRepository(db *mongo.Database) ChatRepository {
	return &mongoChatRepo{
		chats:    db.Collection(chatsCollection),
		messages: db.Collection(messagesCollection),
		now:      time.Now,
	}
}

// PairKey is the canonical, order-independent key of a participant pair.
func PairKey(a, b uuid.UUID) (string, [2]uuid.UUID) {
	if b.String() < a.String() {
		a, b = b, a
	}
	return a.String() + ":" + b.String(), [2]uuid.UUID{a, b}
}

func (r *mongoChatRepo) GetOrCreate(ctx context.Context, a, b uuid.UUID) (*model.Chat, error) {
	key, pair := PairKey(a, b)
	filter := bson.D{{Key: "pair_key", Value: key}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "_id", Value: uuid.NewString()},
		{Key: "participants", Value: []string{pair[0].String(), pair[1].String()}},
		{Key: "message_count", Value: int64(0)},
		{Key: "created_at", Value: r.now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc chatDoc
	err := r.chats.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race on pair_key; the winner's document is there now.
		err = r.chats.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create chat: %w", err)
	}
	return doc.toModel()
}

func (r *mongoChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Chat, error) {
	var doc chatDoc
	err := r.chats.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return doc.toModel()
}

func (r *mongoChatRepo) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]model.Chat, error) {
	cur, err := r.chats.Find(ctx,
		bson.D{{Key: "participants", Value: userID.String()}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	var docs []chatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}

	chats := make([]model.Chat, 0, len(docs))
	for _, d := range docs {
		c, err := d.toModel()
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, nil
}

// AppendMessage reserves the sequence number and the timestamp in one update
// on the chat document, so a later seq never carries an earlier time.
func (r *mongoChatRepo) AppendMessage(ctx context.Context, msg *model.Message) error {
	now := r.now().UTC().Truncate(time.Millisecond)

	var chat chatDoc
	err := r.chats.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: msg.ChatID.String()}},
		bson.D{
			{Key: "$inc", Value: bson.D{{Key: "message_count", Value: int64(1)}}},
			{Key: "$max", Value: bson.D{{Key: "last_message_at", Value: now}}},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrChatMissing
		}
		return fmt.Errorf("reserve message slot: %w", err)
	}

	msg.ID = uuid.New()
	msg.CreatedAt = chat.LastMessageAt.UTC()
	doc := messageDoc{
		ID:        msg.ID.String(),
		ChatID:    msg.ChatID.String(),
		Seq:       chat.MessageCount,
		SenderID:  msg.SenderID.String(),
		Content:   msg.Content,
		Kind:      string(msg.Kind),
		CreatedAt: msg.CreatedAt,
	}
	if _, err := r.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *mongoChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID) ([]model.Message, error) {
	cur, err := r.messages.Find(ctx,
		bson.D{{Key: "chat_id", Value: chatID.String()}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	msgs := make([]model.Message, 0, len(docs))
	for _, d := range docs {
		m, err := d.toModel()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, nil
}

func (d chatDoc) toModel() (*model.Chat, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("chat %q: bad id: %w", d.ID, err)
	}
	if len(d.Participants) != 2 {
		return nil, fmt.Errorf("chat %s: expected 2 participants, got %d", d.ID, len(d.Participants))
	}
	chat := &model.Chat{ID: id, CreatedAt: d.CreatedAt}
	for i, p := range d.Participants {
		if chat.Participants[i], err = uuid.Parse(p); err != nil {
			return nil, fmt.Errorf("chat %s: bad participant: %w", d.ID, err)
		}
	}
	return chat, nil
}

func (d messageDoc) toModel() (*model.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("message %q: bad id: %w", d.ID, err)
	}
	chatID, err := uuid.Parse(d.ChatID)
	if err != nil {
		return nil, fmt.Errorf("message %s: bad chat id: %w", d.ID, err)
	}
	senderID, err := uuid.Parse(d.SenderID)
	if err != nil {
		return nil, fmt.Errorf("message %s: bad sender id: %w", d.ID, err)
	}
	return &model.Message{
		ID:        id,
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   d.Content,
		Kind:      model.MessageKind(d.Kind),
		CreatedAt: d.CreatedAt,
	}, nil
}
