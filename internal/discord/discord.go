// Package discord delivers notification messages through a bot session.
package discord

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/notify"
)

// Bot wraps a discordgo session.
type Bot struct {
	session *discordgo.Session
	dir     directory
	log     *zap.Logger
}

// New creates a session for the bot token. The connection is opened by Open.
func New(token string, log *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info("discord ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	})
	return &Bot{session: s, dir: sessionDirectory{s}, log: log}, nil
}

// Open connects the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects the gateway.
func (b *Bot) Close() error { return b.session.Close() }

// directory looks up channels and guilds known to the session.
type directory interface {
	Channel(ctx context.Context, id string) (*discordgo.Channel, error)
	Guilds() []*discordgo.Guild
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
}

type sessionDirectory struct {
	s *discordgo.Session
}

func (d sessionDirectory) Channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	if ch, err := d.s.State.Channel(id); err == nil {
		return ch, nil
	}
	return d.s.Channel(id, discordgo.WithContext(ctx))
}

// Guilds copies the cached guilds and their channel lists. The gateway
// handlers mutate both while holding the state lock.
func (d sessionDirectory) Guilds() []*discordgo.Guild {
	d.s.State.RLock()
	defer d.s.State.RUnlock()
	out := make([]*discordgo.Guild, 0, len(d.s.State.Guilds))
	for _, g := range d.s.State.Guilds {
		out = append(out, &discordgo.Guild{ID: g.ID, Name: g.Name, Channels: append([]*discordgo.Channel(nil), g.Channels...)})
	}
	return out
}

func (d sessionDirectory) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	return d.s.GuildChannels(guildID, discordgo.WithContext(ctx))
}

// Resolve returns the configured text channel. When id is empty, unknown or
// not a guild text channel, it falls back to the first text channel of the
// first guild (by id). No channel yields (nil, nil).
func (b *Bot) Resolve(ctx context.Context, channelID string) (notify.Channel, error) {
	if channelID != "" {
		ch, err := b.dir.Channel(ctx, channelID)
		switch {
		case err != nil:
			b.log.Warn("configured channel not found, falling back", zap.String("channel", channelID), zap.Error(err))
		case ch.Type != discordgo.ChannelTypeGuildText:
			b.log.Warn("configured channel is not a text channel, falling back", zap.String("channel", channelID), zap.Int("type", int(ch.Type)))
		default:
			return b.channel(ch.ID), nil
		}
	}

	guilds := b.dir.Guilds()
	sort.Slice(guilds, func(i, j int) bool { return guilds[i].ID < guilds[j].ID })
	for _, g := range guilds {
		channels := g.Channels
		if len(channels) == 0 {
			fetched, err := b.dir.GuildChannels(ctx, g.ID)
			if err != nil {
				b.log.Warn("list guild channels failed", zap.String("guild", g.ID), zap.Error(err))
				continue
			}
			channels = fetched
		}
		if ch := FirstTextChannel(channels); ch != nil {
			return b.channel(ch.ID), nil
		}
	}
	return nil, nil
}

func (b *Bot) channel(id string) *textChannel {
	return &textChannel{id: id, send: b.session}
}

// FirstTextChannel picks the guild text channel with the lowest position.
func FirstTextChannel(channels []*discordgo.Channel) *discordgo.Channel {
	var best *discordgo.Channel
	for _, ch := range channels {
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if best == nil || ch.Position < best.Position {
			best = ch
		}
	}
	return best
}

type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type textChannel struct {
	id   string
	send embedSender
}

func (c *textChannel) ID() string { return c.id }

func (c *textChannel) Send(ctx context.Context, msg domain.NotificationMessage) error {
	if _, err := c.send.ChannelMessageSendEmbed(c.id, ToEmbed(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send embed: %w: %v", domain.ErrCollaboratorUnavailable, err)
	}
	return nil
}

// ToEmbed converts a message, fitting it to Discord's limits first.
func ToEmbed(msg domain.NotificationMessage) *discordgo.MessageEmbed {
	m := msg.Fit()
	e := &discordgo.MessageEmbed{
		Title:       m.Title,
		Description: m.Description,
		Color:       m.Color,
	}
	if !m.Timestamp.IsZero() {
		e.Timestamp = m.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}
	if m.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: m.Footer}
	}
	if m.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: m.Thumbnail}
	}
	for _, f := range m.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}
