/*
Package record implements the durable per-user record store.

This file holds the chat log operations. The log lives inside the user
record, so appends go through the same load/save cycle as every other record
mutation and inherit its atomicity.
*/
package record

import (
	"errors"
	"time"

	"dietitian/internal/app/profile"
)

// AppendExchange appends a user/bot exchange with the current timestamp and
// persists the record. A missing record is not an error: a placeholder
// record (name "unknown") is created first so the exchange is never dropped.
func (s *Store) AppendExchange(userID, userMessage, botResponse string) error {
	rec, err := s.Load(userID)
	if errors.Is(err, ErrNotFound) {
		if _, err := s.Create(userID, UnknownName, CreateParams{}); err != nil {
			return err
		}
		rec, err = s.Load(userID)
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	rec.Chats = append(rec.Chats, profile.Exchange{
		User:      userMessage,
		Bot:       botResponse,
		Timestamp: time.Now().Format(profile.TimeLayout),
	})

	return s.Save(userID, rec)
}

// Exchanges returns the full chronological chat log for userID, or an empty
// slice when the user or log is absent.
func (s *Store) Exchanges(userID string) []profile.Exchange {
	rec, err := s.Load(userID)
	if err != nil {
		return nil
	}
	return rec.Chats
}

// RecentExchanges returns the last n exchanges in chronological order.
func (s *Store) RecentExchanges(userID string, n int) []profile.Exchange {
	chats := s.Exchanges(userID)
	if n <= 0 {
		return nil
	}
	if len(chats) <= n {
		return chats
	}
	return chats[len(chats)-n:]
}
