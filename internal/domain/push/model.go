package push

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subscription is one browser push endpoint registered by a user. A user can
// hold several (one per browser/device); the endpoint URL is globally unique.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"-"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Subscription) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if s.P256dh == "" || s.Auth == "" {
		return fmt.Errorf("p256dh and auth keys are required")
	}
	return nil
}

// Message is the payload delivered to the service worker.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
