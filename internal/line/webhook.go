package line

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "x-line-signature"

// WebhookRequest is the JSON body LINE delivers to the webhook endpoint.
type WebhookRequest struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

// Event is a single webhook event. Only message events with a text message
// are acted on; everything else (follow, unfollow, sticker, ...) is ignored.
type Event struct {
	Type       string       `json:"type"`
	ReplyToken string       `json:"replyToken,omitempty"`
	Message    EventMessage `json:"message,omitempty"`
	Source     EventSource  `json:"source,omitempty"`
	Timestamp  int64        `json:"timestamp,omitempty"`
}

// EventMessage is the message portion of a message event.
type EventMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

// EventSource identifies where an event came from. UserID is empty for
// group/room events where the sender has not linked their identity.
type EventSource struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// IsTextMessage reports whether the event is a text message event.
func (e Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message.Type == "text"
}
