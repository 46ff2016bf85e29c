package dto

// ProfileUpdateRequest carries the writable profile fields. Nil fields are
// left untouched.
type ProfileUpdateRequest struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Theme    *string `json:"theme,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	Language *string `json:"language,omitempty"`
	Filter   *string `json:"filter,omitempty"`
}

// Fields converts the request to the column/value map the service expects.
func (r ProfileUpdateRequest) Fields() map[string]string {
	fields := make(map[string]string)
	set := func(name string, value *string) {
		if value != nil {
			fields[name] = *value
		}
	}
	set("username", r.Username)
	set("name", r.Name)
	set("email", r.Email)
	set("theme", r.Theme)
	set("timezone", r.Timezone)
	set("language", r.Language)
	set("filter", r.Filter)
	return fields
}

// MetadataSaveRequest payload for metadata upserts.
type MetadataSaveRequest struct {
	Values map[string]string `json:"values"`
}

// AvatarUploadRequest payload carrying a base64-encoded image.
type AvatarUploadRequest struct {
	Image string `json:"image"`
}

// PasswordChangeRequest payload for self-service password change.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordResetRequest payload for admin password reset.
type PasswordResetRequest struct {
	NewPassword string `json:"new_password"`
}
