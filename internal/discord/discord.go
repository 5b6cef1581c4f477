package discord

import "time"

// Announcement is rendered as a single embed in the announce channel.
type Announcement struct {
	Title       string
	Description string
	Footer      string
	Timestamp   time.Time
}

// Client is the REST-only slice of Discord the backend needs. No gateway connection is opened.
type Client interface {
	SendAnnouncement(channelID string, a Announcement) error
	ResolveChannelName(channelID string) (string, error)
	Close() error
}
