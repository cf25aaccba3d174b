package store

import (
	"testing"

	"github.com/open-feature/flagdemo/pkg/model"
	"github.com/stretchr/testify/assert"
)

func notificationType(t *testing.T, n Notifications, key string) string {
	t.Helper()
	entry, ok := n[key].(map[string]interface{})
	if !assert.True(t, ok, "no notification for %s", key) {
		return ""
	}
	return entry["type"].(string)
}

func TestUpdate_ReportsCreateUpdateDelete(t *testing.T) {
	state := NewFlags()

	first := model.Settings{Flags: map[string]model.Flag{
		"a": {State: model.StateEnabled, DefaultVariant: "on"},
		"b": {State: model.StateEnabled, DefaultVariant: "on"},
	}}
	n := state.Update("file", first, []byte(`{"flags":{}}`))
	assert.Len(t, n, 2)
	assert.Equal(t, string(model.NotificationCreate), notificationType(t, n, "a"))

	second := model.Settings{Flags: map[string]model.Flag{
		"a": {State: model.StateEnabled, DefaultVariant: "on"},
		"b": {State: model.StateDisabled, DefaultVariant: "on"},
		"c": {State: model.StateEnabled, DefaultVariant: "off"},
	}}
	n = state.Update("file", second, nil)
	assert.Len(t, n, 2, "unchanged flag a must not be reported")
	assert.Equal(t, string(model.NotificationUpdate), notificationType(t, n, "b"))
	assert.Equal(t, string(model.NotificationCreate), notificationType(t, n, "c"))

	n = state.Update("file", model.Settings{Flags: map[string]model.Flag{}}, nil)
	assert.Len(t, n, 3)
	assert.Equal(t, string(model.NotificationDelete), notificationType(t, n, "a"))
	assert.Empty(t, state.GetAll())
}

func TestGet_SetsKeyAndSource(t *testing.T) {
	state := NewFlags()
	state.Update("remote", model.Settings{Flags: map[string]model.Flag{
		"answer": {State: model.StateEnabled},
	}}, []byte(`{"flags":{"answer":{}}}`))

	flag, ok := state.Get("answer")
	if assert.True(t, ok) {
		assert.Equal(t, "answer", flag.Key)
		assert.Equal(t, "remote", flag.Source)
	}
	_, ok = state.Get("missing")
	assert.False(t, ok)

	assert.JSONEq(t, `{"flags":{"answer":{}}}`, string(state.Raw()))
}

func TestString_ContainsFlag(t *testing.T) {
	state := NewFlags()
	state.Update("file", model.Settings{Flags: map[string]model.Flag{
		"validFlag": {State: model.StateEnabled},
	}}, nil)

	s, err := state.String()
	if assert.NoError(t, err) {
		assert.Contains(t, s, "validFlag")
	}
}
