package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// SimulatedUser walks the site and publishes each page view.
type SimulatedUser struct {
	ID          string
	Site        Site
	TopicPrefix string
	Interval    time.Duration
	Steps       int
	Pub         publisher
	Rng         *rand.Rand
}

type navEvent struct {
	EventType string `json:"event_type"`
	State     string `json:"state"`
}

// Run publishes page views until Steps is reached or ctx is done. Steps of
// zero runs until cancellation.
func (u *SimulatedUser) Run(ctx context.Context) error {
	page := u.Site.Start
	topic := fmt.Sprintf("%s/nav/%s", u.TopicPrefix, u.ID)
	for i := 0; u.Steps == 0 || i < u.Steps; i++ {
		if i > 0 {
			page = u.Site.Next(u.Rng, page)
		}
		payload, err := json.Marshal(navEvent{EventType: "navigate", State: page})
		if err != nil {
			return err
		}
		if token := u.Pub.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		log.Printf("%s -> %s", u.ID, page)
		if u.Interval > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(u.Interval):
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// RegisterResources publishes every site resource once.
func RegisterResources(pub publisher, prefix string, site Site) error {
	for i, r := range site.Resources() {
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("%s/resource/%d", prefix, i)
		if token := pub.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}
	return nil
}
