package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Discord's hard cap on message content length
const maxMessageLen = 2000

// Discord delivers summaries as direct messages over the Discord REST
// API. The session is authenticated once at construction; the DM
// channel is opened on first delivery and reused for the rest of the
// run. No gateway connection is opened: the bot only sends, it never
// listens.
type Discord struct {
	session   *discordgo.Session
	userID    string
	channelID string
}

// NewDiscord creates an authenticated Discord notifier. It validates
// the token immediately so a bad token aborts the run before any feed
// is fetched.
func NewDiscord(token, userID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	me, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("discord authentication failed: %w", err)
	}
	slog.Info("discord session authenticated", "bot", me.Username)

	return &Discord{session: session, userID: userID}, nil
}

// Notify delivers the message as a DM to the configured user
func (d *Discord) Notify(ctx context.Context, msg Message) error {
	if d.channelID == "" {
		channel, err := d.session.UserChannelCreate(d.userID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to open DM channel with user %s: %w", d.userID, err)
		}
		d.channelID = channel.ID
	}

	if _, err := d.session.ChannelMessageSend(d.channelID, FormatMessage(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to deliver DM: %w", err)
	}
	return nil
}

// Close is a no-op: the REST session holds no connection to tear down
func (d *Discord) Close() error {
	return nil
}

// FormatMessage renders the DM body: bold title, summary, link. The
// summary is truncated so the whole message fits Discord's length cap;
// title and link are always kept intact.
func FormatMessage(msg Message) string {
	header := "**" + msg.Title + "**\n"
	footer := "\n" + msg.Link

	budget := maxMessageLen - len([]rune(header)) - len([]rune(footer))
	summary := []rune(msg.Summary)
	if budget < 0 {
		budget = 0
	}
	if len(summary) > budget {
		if budget > 3 {
			summary = append(summary[:budget-3], []rune("...")...)
		} else {
			summary = summary[:budget]
		}
	}

	return header + string(summary) + footer
}
