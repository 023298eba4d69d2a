package sessionstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/ticketremaster/session"
)

// record is the persisted form of a session. Expiry is kept as Unix nanoseconds
// so that every backend stores it the same way.
type record struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *session.User `json:"user,omitempty"`
	Expiry       int64         `json:"expiry"`
}

func toRecord(s session.Session) record {
	r := record{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         s.User,
	}
	if !s.Expiry.IsZero() {
		r.Expiry = s.Expiry.UnixNano()
	}
	return r
}

func (r record) session() *session.Session {
	s := session.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		User:         r.User,
	}
	if r.Expiry != 0 {
		s.Expiry = time.Unix(0, r.Expiry).UTC()
	}
	c := s.Clone()
	return &c
}

func encodeRecord(s session.Session) ([]byte, error) {
	data, err := json.Marshal(toRecord(s))
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*session.Session, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return r.session(), nil
}

func encodeUser(u *session.User) (string, error) {
	if u == nil {
		return "", nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("encoding user: %w", err)
	}
	return string(data), nil
}

func decodeUser(data string) (*session.User, error) {
	if data == "" {
		return nil, nil
	}
	var u session.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return &u, nil
}
