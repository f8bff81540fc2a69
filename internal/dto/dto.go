package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/farm-market-api/internal/model"
)

// --- Auth ---

type RegisterRequest struct {
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=8"`
	Role     string          `json:"role" binding:"required"`
	Location *model.Location `json:"location"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
	Location *model.Location `json:"location,omitempty"`
}

type PrincipalResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// --- Product ---

type ProductRequest struct {
	Title              string          `json:"title" binding:"required"`
	Description        string          `json:"description"`
	ImageURL           string          `json:"image_url"`
	CurrentMarketPrice decimal.Decimal `json:"current_market_price"`
	SellingPrice       decimal.Decimal `json:"selling_price"`
}

type ProductResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	ImageURL           string          `json:"image_url"`
	CurrentMarketPrice decimal.Decimal `json:"current_market_price"`
	SellingPrice       decimal.Decimal `json:"selling_price"`
	CreatedBy          uuid.UUID       `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

// --- Cart ---

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

// CartItemResponse carries live catalog data; Product is nil when the
// product was deleted after being added.
type CartItemResponse struct {
	ProductID uuid.UUID        `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Available bool             `json:"available"`
	Product   *ProductResponse `json:"product,omitempty"`
	LineTotal decimal.Decimal  `json:"line_total"`
}

// --- Order ---

type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
}

type OrderItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type CheckoutResponse struct {
	Order           OrderResponse `json:"order"`
	SkippedProducts []uuid.UUID   `json:"skipped_products,omitempty"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Chat ---

type SendMessageRequest struct {
	ChatID  string `json:"chat_id" binding:"required,uuid"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID           uuid.UUID   `json:"id"`
	Participants []uuid.UUID `json:"participants"`
	PeerID       uuid.UUID   `json:"peer_id"`
	CreatedAt    time.Time   `json:"created_at"`
}

type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationResponse struct {
	Chat     ChatResponse      `json:"chat"`
	Messages []MessageResponse `json:"messages"`
}

type ChatListResponse struct {
	Chats []ChatResponse `json:"chats"`
}

// --- Farmers map ---

type FarmerLocationResponse struct {
	FarmerID  string  `json:"farmer_id"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Crops     string  `json:"crops"`
}

func NewMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Kind:      string(m.Kind),
		CreatedAt: m.CreatedAt,
	}
}
