package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/YoFujii0705/fumiyome-bird-sub001/internal/domain"
)

func TestToEmbed(t *testing.T) {
	ts := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)
	msg := domain.NotificationMessage{
		Title:       strings.Repeat("t", 300),
		Description: "weekly summary",
		Color:       domain.ColorInfo,
		Footer:      "footer",
		Timestamp:   ts,
	}
	msg.AddField("📚 Books", "3", true).AddField("", "", false)

	e := ToEmbed(msg)
	if len([]rune(e.Title)) != domain.MaxTitleLen {
		t.Fatalf("title should be truncated to %d runes, got %d", domain.MaxTitleLen, len([]rune(e.Title)))
	}
	if e.Footer == nil || e.Footer.Text != "footer" || e.Thumbnail != nil {
		t.Fatalf("unexpected footer/thumbnail: %+v %+v", e.Footer, e.Thumbnail)
	}
	if len(e.Fields) != 2 || !e.Fields[0].Inline || e.Fields[1].Name == "" || e.Fields[1].Value == "" {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
	if e.Timestamp != "2024-03-10T20:00:00Z" {
		t.Fatalf("Timestamp = %q", e.Timestamp)
	}
}

func TestFirstTextChannel(t *testing.T) {
	chs := []*discordgo.Channel{
		{ID: "voice", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
		{ID: "general", Type: discordgo.ChannelTypeGuildText, Position: 3},
		{ID: "news", Type: discordgo.ChannelTypeGuildText, Position: 1},
	}
	if got := FirstTextChannel(chs); got == nil || got.ID != "news" {
		t.Fatalf("FirstTextChannel = %+v, want news", got)
	}
	if FirstTextChannel(chs[:1]) != nil {
		t.Fatal("no text channel should give nil")
	}
}

type fakeSender struct {
	channel string
	embed   *discordgo.MessageEmbed
	err     error
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.embed = channelID, embed
	return &discordgo.Message{}, f.err
}

func TestTextChannel_Send(t *testing.T) {
	fs := &fakeSender{}
	ch := &textChannel{id: "123", send: fs}
	if err := ch.Send(context.Background(), domain.NotificationMessage{Description: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if fs.channel != "123" || fs.embed.Title == "" {
		t.Fatalf("unexpected send: %s %+v", fs.channel, fs.embed)
	}

	fs.err = errors.New("429")
	err := ch.Send(context.Background(), domain.NotificationMessage{Title: "x"})
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("want ErrCollaboratorUnavailable, got %v", err)
	}
}

type fakeDirectory struct {
	channels map[string]*discordgo.Channel
	guilds   []*discordgo.Guild
	listed   map[string][]*discordgo.Channel
}

func (f *fakeDirectory) Channel(_ context.Context, id string) (*discordgo.Channel, error) {
	if ch, ok := f.channels[id]; ok {
		return ch, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

func (f *fakeDirectory) Guilds() []*discordgo.Guild { return f.guilds }

func (f *fakeDirectory) GuildChannels(_ context.Context, guildID string) ([]*discordgo.Channel, error) {
	if chs, ok := f.listed[guildID]; ok {
		return chs, nil
	}
	return nil, errors.New("missing access")
}

func TestResolve(t *testing.T) {
	dir := &fakeDirectory{
		channels: map[string]*discordgo.Channel{
			"reports": {ID: "reports", Type: discordgo.ChannelTypeGuildText},
			"lounge":  {ID: "lounge", Type: discordgo.ChannelTypeGuildVoice},
		},
		guilds: []*discordgo.Guild{
			{ID: "200", Channels: []*discordgo.Channel{{ID: "late", Type: discordgo.ChannelTypeGuildText}}},
			{ID: "100"},
		},
		listed: map[string][]*discordgo.Channel{
			"100": {
				{ID: "category", Type: discordgo.ChannelTypeGuildCategory},
				{ID: "general", Type: discordgo.ChannelTypeGuildText, Position: 2},
			},
		},
	}
	b := &Bot{dir: dir, log: zap.NewNop()}

	cases := []struct {
		configured string
		want       string
	}{
		{"reports", "reports"},
		{"", "general"},
		{"deleted", "general"},
		{"lounge", "general"},
	}
	for _, tc := range cases {
		ch, err := b.Resolve(context.Background(), tc.configured)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.configured, err)
		}
		if ch == nil || ch.ID() != tc.want {
			t.Fatalf("Resolve(%q) = %v, want %s", tc.configured, ch, tc.want)
		}
	}
}

func TestResolve_NoTextChannel(t *testing.T) {
	dir := &fakeDirectory{guilds: []*discordgo.Guild{
		{ID: "1", Channels: []*discordgo.Channel{{ID: "voice", Type: discordgo.ChannelTypeGuildVoice}}},
		{ID: "2"},
	}}
	b := &Bot{dir: dir, log: zap.NewNop()}
	ch, err := b.Resolve(context.Background(), "gone")
	if err != nil || ch != nil {
		t.Fatalf("Resolve = %v, %v; want nil, nil", ch, err)
	}
}
