package invitation

import "time"

// CreateInput represents the request to create a new invitation
type CreateInput struct {
	EventName       string       `validate:"required,max=200"`
	StartTime       time.Time    `validate:"required"`
	EndTime         time.Time    `validate:"required,gtfield=StartTime"`
	WorldName       string       `validate:"required,max=200"`
	WorldLink       string       `validate:"omitempty,vrcworld"`
	Tag             Tag          `validate:"required,oneof=tourism game relax photoshoot event other"`
	Description     string       `validate:"required,max=2000"`
	InstanceType    InstanceType `validate:"required,oneof=group friend friendplus public"`
	VRChatProfile   string       `validate:"omitempty,vrcuser"`
	MaxParticipants int          `validate:"required,min=1,max=100"`
}

// UpdateInput represents the request to edit an invitation. Nil fields are
// left unchanged; the edit modal cannot pre-fill prior values, so the edit
// flow only re-collects the core fields.
type UpdateInput struct {
	EventName   *string    `validate:"omitempty,max=200"`
	StartTime   *time.Time `validate:"omitempty"`
	EndTime     *time.Time `validate:"omitempty"`
	WorldName   *string    `validate:"omitempty,max=200"`
	Description *string    `validate:"omitempty,max=2000"`
}

// TimeLayout is the format hosts type into the schedule modal fields.
const TimeLayout = "2006-01-02T15:04"

// ParseScheduleTime parses a modal datetime field in the bot's local zone.
func ParseScheduleTime(value string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, value, time.Local)
}
