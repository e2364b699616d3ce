package component

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/bus"
	"github.com/sipeed/cinebot/pkg/domain"
)

type editCall struct {
	kind      string
	messageID string
	channelID string
	empty     bool
}

type fakeEditor struct {
	mu    sync.Mutex
	calls []editCall
	err   error
}

func (f *fakeEditor) record(c editCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeEditor) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeEditor) Calls() []editCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]editCall(nil), f.calls...)
}

func isEmpty(c *[]discordgo.MessageComponent) bool {
	return c != nil && len(*c) == 0
}

func (f *fakeEditor) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return nil, f.record(editCall{kind: "channel", messageID: m.ID, channelID: m.Channel, empty: isEmpty(m.Components)})
}

func (f *fakeEditor) InteractionResponseEdit(i *discordgo.Interaction, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return nil, f.record(editCall{kind: "reply", channelID: i.ChannelID, empty: isEmpty(e.Components)})
}

func (f *fakeEditor) FollowupMessageEdit(i *discordgo.Interaction, id string, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return nil, f.record(editCall{kind: "followup", messageID: id, channelID: i.ChannelID, empty: isEmpty(e.Components)})
}

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(string, bus.ClickHandler) (func(), error) {
	return nil, errors.New("gateway closed")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.EventType
}

func (p *recordingPublisher) Publish(e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.EventType())
}

func (p *recordingPublisher) Types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.EventType(nil), p.events...)
}
