package backend

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one row-level change in a watched collection. Row carries the
// full post-change row for INSERT and UPDATE.
type ChangeEvent struct {
	Channel string          `json:"channel"`
	Table   string          `json:"table"`
	Type    ChangeType      `json:"type"`
	Row     json.RawMessage `json:"row"`
}

// ChannelKey builds the subscription channel name for one concern and entity,
// e.g. "games:2f1c..." or "notifications:<userId>".
func ChannelKey(concern, entityID string) string {
	return concern + ":" + entityID
}

// SubjectFor maps a channel key onto its realtime subject.
func SubjectFor(channel string) string {
	return "sipstream.changes." + strings.ReplaceAll(channel, ":", ".")
}

// ChangeSub is one registered change subscription. Unsubscribe is idempotent
// and safe after the underlying connection has dropped.
type ChangeSub struct {
	sub  *nats.Subscription
	once sync.Once
}

func (s *ChangeSub) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.sub == nil {
			return
		}
		if err := s.sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
			log.Errorf("Error unsubscribing channel: %s", err)
		}
	})
}

// SubscribeChanges registers onChange for every row change published on the
// given channel. Delivery is at-least-once; successive changes of one row
// arrive in order, ordering across rows is not guaranteed.
func (c *Client) SubscribeChanges(channel string, onChange func(ChangeEvent)) (*ChangeSub, error) {
	sub, err := c.nc.Subscribe(SubjectFor(channel), func(m *nats.Msg) {
		ev := ChangeEvent{}
		if err := json.Unmarshal(m.Data, &ev); err != nil {
			log.Errorf("Error decoding change event on %s: %s", channel, err)
			return
		}
		onChange(ev)
	})
	if err != nil {
		return nil, err
	}
	return &ChangeSub{sub: sub}, nil
}

// PublishChange fans a row change out to every subscriber of its channel.
// Writers call this after the store write commits.
func (c *Client) PublishChange(ev ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Error encoding change event for %s: %s", ev.Channel, err)
		return err
	}
	if err := c.nc.Publish(SubjectFor(ev.Channel), payload); err != nil {
		log.Errorf("Error publishing change to %s: %s", ev.Channel, err)
		return err
	}
	return nil
}
