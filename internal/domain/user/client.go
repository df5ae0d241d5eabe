package user

import "time"

// Client is a property-management company: the unit of data isolation.
// Every client has exactly one owner user with role CLIENT.
type Client struct {
	ID                     string     `json:"-"`
	ExternalID             string     `json:"clientId"`
	OwnerID                string     `json:"-"`
	CompanyName            string     `json:"companyName"`
	Subscribed             bool       `json:"isSubscribed"`
	SubscriptionPlan       string     `json:"subscriptionPlan,omitempty"`
	SubscriptionValidUntil *time.Time `json:"subscriptionValidUntil,omitempty"`
	Archived               bool       `json:"archived"`
	CreatedAt              time.Time  `json:"createdAt"`

	OwnerName  string `json:"ownerName,omitempty"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
}
