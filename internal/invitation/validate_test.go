package invitation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidInstanceLink(t *testing.T) {
	assert.True(t, ValidInstanceLink("https://vrchat.com/home/world/wrld_abc~group(grp_1)"))
	assert.False(t, ValidInstanceLink("https://vrchat.com/home/user/usr_abc"))
	assert.False(t, ValidInstanceLink("http://vrchat.com/home/world/wrld_abc"))
	assert.False(t, ValidInstanceLink(""))
}

func TestWorldLinkPattern(t *testing.T) {
	v := NewValidator()

	valid := validInput()
	valid.WorldLink = "https://vrchat.com/home/world/wrld_4cf554b4-430c-4f8f-b53e-1f294eed230b"
	assert.NoError(t, v.Struct(valid))

	for _, link := range []string{
		"https://vrchat.com/home/world/abc",
		"https://vrchat.com/home/world/wrld_",
		"https://vrchat.com/home/world/wrld_abc extra",
		"https://example.com/home/world/wrld_abc",
	} {
		in := validInput()
		in.WorldLink = link
		assert.Error(t, v.Struct(in), link)
	}
}

func TestProfilePattern(t *testing.T) {
	v := NewValidator()

	in := validInput()
	in.InstanceType = InstanceFriend
	in.VRChatProfile = "https://vrchat.com/home/user/usr_9f1a2b3c-0d4e-5678-9abc-def012345678"
	assert.NoError(t, v.Struct(in))

	in.VRChatProfile = "https://vrchat.com/home/user/someone"
	assert.Error(t, v.Struct(in))
}

func TestValidationMessages(t *testing.T) {
	v := NewValidator()

	in := validInput()
	in.EventName = ""
	in.Tag = "party"
	err := v.Struct(in)
	require.Error(t, err)

	msgs := ValidationMessages(err)
	assert.Contains(t, msgs, "Event name is required")
	assert.Contains(t, msgs, "Category must be one of: tourism, game, relax, photoshoot, event, other")
}

func TestValidationMessagesNonValidatorError(t *testing.T) {
	msgs := ValidationMessages(assert.AnError)
	assert.Equal(t, []string{"Invalid input"}, msgs)
}

func TestParseScheduleTime(t *testing.T) {
	got, err := ParseScheduleTime("2026-09-01T20:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 20, 30, 0, 0, time.Local), got)

	_, err = ParseScheduleTime("tomorrow evening")
	assert.Error(t, err)
}
