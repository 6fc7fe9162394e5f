package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/services"
)

// extractMessage pulls the postMessage payload out of the rendered page and
// decodes it, so the tests pin the exact schema the opener listener consumes.
func extractMessage(t *testing.T, page string) map[string]any {
	t.Helper()
	_, after, found := strings.Cut(page, "window.opener.postMessage(")
	require.True(t, found, "page must post a message to the opener")
	raw, _, found := strings.Cut(after, `, "*")`)
	require.True(t, found)

	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func TestCallbackPageSuccessMessage(t *testing.T) {
	page := callbackPage(&services.CallbackResult{
		Success: true,
		Pages: []domain.FacebookPage{
			{ID: "page-1", Name: "My Page", Category: "Blog", AccessToken: "page-tok"},
		},
	})

	msg := extractMessage(t, page)
	assert.Equal(t, "FACEBOOK_CONNECTED", msg["type"])
	assert.Equal(t, true, msg["success"])
	assert.NotContains(t, msg, "error")

	pages, ok := msg["pages"].([]any)
	require.True(t, ok, "success message carries the pages array")
	require.Len(t, pages, 1)
	page0 := pages[0].(map[string]any)
	assert.Equal(t, "page-1", page0["id"])
	assert.Equal(t, "My Page", page0["name"])
	assert.NotContains(t, page, "page-tok", "page tokens never reach the browser")
}

func TestCallbackPageFailureMessage(t *testing.T) {
	page := callbackPage(&services.CallbackResult{Error: "User denied the request"})

	msg := extractMessage(t, page)
	assert.Equal(t, "FACEBOOK_CONNECTED", msg["type"], "failures use the same message type")
	assert.Equal(t, false, msg["success"])
	assert.Equal(t, "User denied the request", msg["error"])
}

func TestCallbackPageNoPages(t *testing.T) {
	page := callbackPage(&services.CallbackResult{Success: true})

	msg := extractMessage(t, page)
	assert.Equal(t, true, msg["success"])
	pages, ok := msg["pages"].([]any)
	require.True(t, ok, "pages is an array even when the user manages none")
	assert.Empty(t, pages)
}

func TestCallbackPageEscapesErrorText(t *testing.T) {
	page := callbackPage(&services.CallbackResult{Error: `</script><script>alert(1)`})

	assert.NotContains(t, page, "</script><script>alert(1)")
	msg := extractMessage(t, page)
	assert.Equal(t, `</script><script>alert(1)`, msg["error"], "escaping survives a round trip")
}
