package domain

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a field that was supplied from one that was omitted.
// A JSON null decodes as omitted.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Optional[T]{Set: true, Value: v}
	return nil
}

// ProfilePatch lists the externally writable account fields. Omitted fields keep
// their stored value; an empty string or empty list clears about/skills.
type ProfilePatch struct {
	Name   Optional[string]   `json:"name"`
	Email  Optional[string]   `json:"email"`
	About  Optional[string]   `json:"about"`
	Skills Optional[[]string] `json:"skills"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return !p.Name.Set && !p.Email.Set && !p.About.Set && !p.Skills.Set
}

// Apply copies supplied fields onto the account.
func (p ProfilePatch) Apply(a *Account) {
	if p.Name.Set {
		a.Name = p.Name.Value
	}
	if p.Email.Set {
		a.Email = p.Email.Value
	}
	if p.About.Set {
		a.About = p.About.Value
	}
	if p.Skills.Set {
		skills := make([]string, len(p.Skills.Value))
		copy(skills, p.Skills.Value)
		a.Skills = skills
	}
}
