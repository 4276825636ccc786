package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilePatchDecodeDistinguishesAbsentNullAndEmpty(t *testing.T) {
	var patch ProfilePatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"X","email":null,"about":"","skills":[]}`), &patch))

	assert.True(t, patch.Name.Set)
	assert.Equal(t, "X", patch.Name.Value)
	assert.False(t, patch.Email.Set, "null must decode as omitted")
	assert.True(t, patch.About.Set)
	assert.Equal(t, "", patch.About.Value)
	assert.True(t, patch.Skills.Set)
	assert.Empty(t, patch.Skills.Value)
}

func TestProfilePatchIgnoresUnwritableFields(t *testing.T) {
	var patch ProfilePatch
	require.NoError(t, json.Unmarshal([]byte(`{"username":"mallory","isVerified":true}`), &patch))
	assert.True(t, patch.Empty())
}

func TestProfilePatchApply(t *testing.T) {
	account := &Account{Name: "Ana", Email: "a@x.com", About: "hi", Skills: []string{"go"}}
	patch := ProfilePatch{About: Some(""), Skills: Some([]string{})}

	patch.Apply(account)

	assert.Equal(t, "Ana", account.Name)
	assert.Equal(t, "a@x.com", account.Email)
	assert.Equal(t, "", account.About)
	assert.Empty(t, account.Skills)
}

func TestOptionalRejectsWrongType(t *testing.T) {
	var patch ProfilePatch
	require.Error(t, json.Unmarshal([]byte(`{"skills":"go"}`), &patch))
}

func TestViewOmitsSecrets(t *testing.T) {
	otp := "123456"
	account := &Account{ID: "id", Name: "Ana", PasswordHash: []byte("hash"), OTP: &otp}
	data, err := json.Marshal(account.View())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"password", "passwordHash", "PasswordHash", "otp", "OTP"} {
		assert.NotContains(t, fields, key)
	}
	assert.Equal(t, []any{}, fields["skills"])
	assert.Equal(t, "", fields["about"])
}
