package invitation

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInvitation(status Status) *Invitation {
	return &Invitation{
		ID:              "msg-1",
		ThreadID:        "thread-1",
		HostID:          "host-1",
		HostName:        "Host",
		EventName:       "World hopping night",
		StartTime:       time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 9, 1, 23, 0, 0, 0, time.UTC),
		WorldName:       "The Great Pug",
		Tag:             TagTourism,
		Description:     "Casual world hopping.",
		InstanceType:    InstancePublic,
		MaxParticipants: 3,
		Status:          status,
		CreatedAt:       time.Now(),
	}
}

func TestEmbedStatusColors(t *testing.T) {
	tests := []struct {
		status Status
		color  int
	}{
		{StatusRecruiting, colorRecruiting},
		{StatusFull, colorFull},
		{StatusCompleted, colorCompleted},
		{StatusCancelled, colorCancelled},
	}
	for _, tt := range tests {
		embed := Embed(testInvitation(tt.status), nil)
		assert.Equal(t, tt.color, embed.Color, string(tt.status))
	}
}

func TestEmbedParticipantLists(t *testing.T) {
	inv := testInvitation(StatusRecruiting)
	parts := []*Participant{
		{UserName: "Alice", Status: ParticipantJoined},
		{UserName: "Bob", Status: ParticipantJoined},
		{UserName: "Carol", Status: ParticipantInterested},
	}

	embed := Embed(inv, parts)

	var joined, interested, count string
	for _, f := range embed.Fields {
		switch f.Name {
		case "✅ Joined":
			joined = f.Value
		case "💭 Interested":
			interested = f.Value
		case "👥 Participants":
			count = f.Value
		}
	}
	assert.Contains(t, joined, "Alice")
	assert.Contains(t, joined, "Bob")
	assert.NotContains(t, joined, "Carol")
	assert.Contains(t, interested, "Carol")
	assert.Equal(t, "2/3", count)
}

func TestEmbedWorldLink(t *testing.T) {
	inv := testInvitation(StatusRecruiting)
	link := "https://vrchat.com/home/world/wrld_abc"
	inv.WorldLink = &link

	embed := Embed(inv, nil)
	for _, f := range embed.Fields {
		if f.Name == "🌍 World" {
			assert.Equal(t, "[The Great Pug](https://vrchat.com/home/world/wrld_abc)", f.Value)
			return
		}
	}
	t.Fatal("world field missing")
}

func TestNameListTruncation(t *testing.T) {
	names := make([]string, 200)
	for i := range names {
		names[i] = "ParticipantWithALongName"
	}
	list := nameList(names)
	assert.LessOrEqual(t, len(list), 1024)
	assert.True(t, strings.HasSuffix(list, "..."))
}

func buttonsOf(row discordgo.ActionsRow) []discordgo.Button {
	out := make([]discordgo.Button, 0, len(row.Components))
	for _, c := range row.Components {
		out = append(out, c.(discordgo.Button))
	}
	return out
}

func TestParticipantButtons(t *testing.T) {
	open := buttonsOf(ParticipantButtons("msg-1", StatusRecruiting, false))
	require.Len(t, open, 3)
	for _, b := range open {
		assert.False(t, b.Disabled, b.CustomID)
	}
	assert.Equal(t, CustomIDJoinPrefix+"msg-1", open[0].CustomID)

	full := buttonsOf(ParticipantButtons("msg-1", StatusFull, true))
	assert.True(t, full[0].Disabled)  // join
	assert.False(t, full[1].Disabled) // interested
	assert.False(t, full[2].Disabled) // cancel

	done := buttonsOf(ParticipantButtons("msg-1", StatusCompleted, false))
	for _, b := range done {
		assert.True(t, b.Disabled, b.CustomID)
	}
}

func TestHostButtonsTerminal(t *testing.T) {
	for _, b := range buttonsOf(HostButtons("msg-1", StatusCancelled)) {
		assert.True(t, b.Disabled, b.CustomID)
	}
}

func TestCancelEventPrefixDistinct(t *testing.T) {
	// The event-cancel prefix contains the participation-cancel prefix, so
	// routing must match the longer one first. Guard the assumption.
	assert.True(t, strings.HasPrefix(CustomIDCancelEventPrefix, CustomIDCancelPrefix))
}
