package infrastructure

import (
	"context"
	"fmt"

	"highroll/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// MessageSender is the part of *discordgo.Session the announcer needs
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordAnnouncer posts new high scores to a Discord channel
type DiscordAnnouncer struct {
	sender    MessageSender
	channelID string
}

// NewDiscordSession opens a bot session for the given token
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// NewDiscordAnnouncer creates an announcer that writes to channelID
func NewDiscordAnnouncer(sender MessageSender, channelID string) *DiscordAnnouncer {
	return &DiscordAnnouncer{
		sender:    sender,
		channelID: channelID,
	}
}

// SubscribeTo registers the announcer for high score events
func (a *DiscordAnnouncer) SubscribeTo(bus *events.Bus) {
	bus.Subscribe(events.EventTypeHighScoreBeaten, a.HandleHighScoreBeaten)
}

// HandleHighScoreBeaten posts the announcement. Failures are logged, never returned.
func (a *DiscordAnnouncer) HandleHighScoreBeaten(ctx context.Context, event events.Event) {
	e, ok := event.(events.HighScoreBeatenEvent)
	if !ok {
		return
	}

	content := FormatHighScoreAnnouncement(e)
	if _, err := a.sender.ChannelMessageSend(a.channelID, content, discordgo.WithContext(ctx)); err != nil {
		log.WithFields(log.Fields{
			"userID":    e.UserID,
			"channelID": a.channelID,
		}).WithError(err).Error("Failed to announce high score")
		return
	}

	log.WithFields(log.Fields{
		"userID":    e.UserID,
		"highScore": e.NewHighScore,
	}).Debug("Announced high score")
}

// FormatHighScoreAnnouncement renders the channel message for a new high score
func FormatHighScoreAnnouncement(e events.HighScoreBeatenEvent) string {
	return fmt.Sprintf("🎲 **%s** set a new high score of **%d**!", e.Username, e.NewHighScore)
}
