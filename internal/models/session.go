package models

import (
	"time"
)

type Session struct {
	ID          string
	AccessToken string
	ExpiresAt   time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
