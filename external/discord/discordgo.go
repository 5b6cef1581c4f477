package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/kavya5cloud/studyroom/internal/discord"
)

const announcementColor = 0x4CAF50

type Client struct {
	session *discordgo.Session
}

// NewClient builds a REST-only session. The gateway websocket is never opened.
func NewClient(token string) (discordpkg.Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Client = &http.Client{Timeout: 10 * time.Second}
	return &Client{session: s}, nil
}

func (c *Client) SendAnnouncement(channelID string, a discordpkg.Announcement) error {
	if c.session == nil {
		return errors.New("discord session is not initialized")
	}
	embed := &discordgo.MessageEmbed{
		Title:       a.Title,
		Description: a.Description,
		Color:       announcementColor,
	}
	if !a.Timestamp.IsZero() {
		embed.Timestamp = a.Timestamp.UTC().Format(time.RFC3339)
	}
	if a.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: a.Footer}
	}
	if _, err := c.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("send announcement to channel %s: %w", channelID, err)
	}
	return nil
}

// ResolveChannelName prefers the state cache and falls back to REST. A missing channel resolves
// to an empty name.
func (c *Client) ResolveChannelName(channelID string) (string, error) {
	if c.session == nil {
		return "", nil
	}
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel.Name, nil
		}
	}
	channel, err := c.session.Channel(channelID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if channel == nil {
		return "", nil
	}
	if c.session.State != nil {
		_ = c.session.State.ChannelAdd(channel)
	}
	return channel.Name, nil
}

func (c *Client) Close() error {
	if c.session != nil {
		c.session.Client.CloseIdleConnections()
	}
	return nil
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}
