package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleCustomer Role = "customer"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleFarmer, RoleCustomer:
		return r, nil
	}
	return "", ErrUnknownRole
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Role      Role
	Location  *Location
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Pincode string `json:"pincode"`
}

type Product struct {
	ID                 uuid.UUID
	Title              string
	Description        string
	ImageURL           string
	CurrentMarketPrice decimal.Decimal
	SellingPrice       decimal.Decimal
	CreatedBy          uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Cart struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Items      []CartItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type Order struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	Items       []OrderItem
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
}

// OrderItem is a snapshot line; prices live only in Order.TotalAmount.
type OrderItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type Chat struct {
	ID           uuid.UUID
	Participants [2]uuid.UUID
	CreatedAt    time.Time
}

// HasParticipant reports whether id is one of the two chat members.
func (c *Chat) HasParticipant(id uuid.UUID) bool {
	return c.Participants[0] == id || c.Participants[1] == id
}

// Peer returns the participant that is not id.
func (c *Chat) Peer(id uuid.UUID) uuid.UUID {
	if c.Participants[0] == id {
		return c.Participants[1]
	}
	return c.Participants[0]
}

type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindOrder MessageKind = "order"
)

type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	SenderID  uuid.UUID
	Content   string
	Kind      MessageKind
	CreatedAt time.Time
}

type FarmerLocation struct {
	ID        uuid.UUID
	FarmerID  string
	State     string
	Latitude  float64
	Longitude float64
	Crops     string
}

type OrderPlacedMessage struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}
