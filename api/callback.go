package api

import (
	"encoding/json"
	"fmt"

	"github.com/rewardly/rewardly/services"
)

// messageConnected is the single message type the frontend listens for on
// the opener window; the listener branches on the success flag.
const messageConnected = "FACEBOOK_CONNECTED"

type callbackMessage struct {
	Type    string         `json:"type"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Pages   []PageResponse `json:"pages"`
}

// callbackPage renders the message-and-close document served at the end of
// the OAuth popup flow. Every outcome posts a FACEBOOK_CONNECTED message
// carrying success, the error text on failure, and the connected pages on
// success; page-scoped tokens are stripped before anything reaches the
// browser. The page closes itself and shows a short line for popups opened
// without an opener.
func callbackPage(result *services.CallbackResult) string {
	msg := callbackMessage{Type: messageConnected, Success: result.Success, Pages: []PageResponse{}}
	text := "Facebook account connected. You can close this window."
	if result.Success {
		for _, p := range result.Pages {
			msg.Pages = append(msg.Pages, PageResponse{ID: p.ID, Name: p.Name, Category: p.Category})
		}
	} else {
		msg.Error = result.Error
		text = "Facebook connection failed. You can close this window."
	}

	// json.Marshal escapes <, > and & so the payload is safe to embed in a
	// script element even when the error text is provider-supplied.
	payload, err := json.Marshal(msg)
	if err != nil {
		payload = []byte(`{"type":"` + messageConnected + `","success":false}`)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Facebook Connection</title></head>
<body>
<p>%s</p>
<script>
  if (window.opener) {
    window.opener.postMessage(%s, "*");
  }
  window.close();
</script>
</body>
</html>`, text, payload)
}
