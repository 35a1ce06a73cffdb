package models

import (
	"time"
)

const (
	RefundKindMoney   = "money"
	RefundKindItem    = "item"
	RefundKindVehicle = "vehicle"
)

const (
	RefundStatusPending = "pending"
	RefundStatusClaimed = "claimed"
)

// Grant is what the player receives in-game.
// Implemented by MoneyGrant, ItemGrant and VehicleGrant only.
type Grant interface {
	Kind() string
	grant()
}

type MoneyGrant struct {
	Amount *int64 // nil if the amount could not be parsed
}

type ItemGrant struct {
	Name     string
	Quantity *int64
}

type VehicleGrant struct {
	Model string
	Plate string // optional
}

func (MoneyGrant) Kind() string   { return RefundKindMoney }
func (ItemGrant) Kind() string    { return RefundKindItem }
func (VehicleGrant) Kind() string { return RefundKindVehicle }

func (MoneyGrant) grant()   {}
func (ItemGrant) grant()    {}
func (VehicleGrant) grant() {}

type Refund struct {
	ID               int64
	PlayerIdentifier string
	PlayerName       string
	PlayerDiscord    *string
	AdminID          string
	AdminName        string
	Grant            Grant
	Reason           *string
	Status           string
	CreatedAt        time.Time
	ClaimedAt        *time.Time // nil until claimed
}

// Refund as admin submitted it, not validated yet
type RefundDraft struct {
	PlayerIdentifier string
	PlayerName       string
	PlayerDiscord    string
	Kind             string
	Amount           *int64
	ItemName         string
	VehicleModel     string
	VehiclePlate     string
	Reason           string
}
