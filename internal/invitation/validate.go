package invitation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	worldLinkPattern = regexp.MustCompile(`^https://vrchat\.com/home/world/wrld_[A-Za-z0-9-]+$`)
	profilePattern   = regexp.MustCompile(`^https://vrchat\.com/home/user/usr_[A-Za-z0-9-]+$`)
)

// InstanceLinkPrefix is the required prefix for staff-provisioned instance links.
const InstanceLinkPrefix = "https://vrchat.com/home/world/"

// ValidInstanceLink reports whether a staff-submitted instance link is acceptable.
func ValidInstanceLink(link string) bool {
	return strings.HasPrefix(link, InstanceLinkPrefix)
}

// NewValidator builds the input validator with the VRChat URL rules and the
// cross-field invitation checks registered.
func NewValidator() *validator.Validate {
	v := validator.New()

	// Registration only fails for empty tag names or nil funcs.
	_ = v.RegisterValidation("vrcworld", func(fl validator.FieldLevel) bool {
		return worldLinkPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("vrcuser", func(fl validator.FieldLevel) bool {
		return profilePattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(validateCreateInput, CreateInput{})

	return v
}

// validateCreateInput applies the rules that span fields: event names may not
// contain newlines, and friend/friend+ instances require a profile URL.
func validateCreateInput(sl validator.StructLevel) {
	in := sl.Current().Interface().(CreateInput)

	if strings.ContainsAny(in.EventName, "\n\r") {
		sl.ReportError(in.EventName, "EventName", "EventName", "lineless", "")
	}

	if in.InstanceType.RequiresProfile() && in.VRChatProfile == "" {
		sl.ReportError(in.VRChatProfile, "VRChatProfile", "VRChatProfile", "required_for_instance", "")
	}
}

// fieldMessages maps validation failures to the messages shown to the user.
var fieldMessages = map[string]string{
	"EventName.required":                  "Event name is required",
	"EventName.max":                       "Event name must be at most 200 characters",
	"EventName.lineless":                  "Event name may not contain line breaks",
	"StartTime.required":                  "Start time is required",
	"EndTime.required":                    "End time is required",
	"EndTime.gtfield":                     "End time must be after the start time",
	"WorldName.required":                  "World name is required",
	"WorldName.max":                       "World name must be at most 200 characters",
	"WorldLink.vrcworld":                  "World link must look like https://vrchat.com/home/world/wrld_...",
	"Tag.required":                        "Category is required",
	"Tag.oneof":                           "Category must be one of: tourism, game, relax, photoshoot, event, other",
	"Description.required":                "Description is required",
	"Description.max":                     "Description must be at most 2000 characters",
	"InstanceType.required":               "Instance type is required",
	"InstanceType.oneof":                  "Instance type must be one of: group, friend, friendplus, public",
	"VRChatProfile.vrcuser":               "Profile URL must look like https://vrchat.com/home/user/usr_...",
	"VRChatProfile.required_for_instance": "A VRChat profile URL is required for friend/friend+ instances",
	"MaxParticipants.required":            "Max participants is required",
	"MaxParticipants.min":                 "Max participants must be at least 1",
	"MaxParticipants.max":                 "Max participants must be at most 100",
}

// ValidationMessages flattens a validator error into user-facing field messages.
func ValidationMessages(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"Invalid input"}
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			messages = append(messages, msg)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s: invalid value", fe.Field()))
	}
	return messages
}
