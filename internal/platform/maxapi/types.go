package maxapi

// Update types delivered to the webhook.
const (
	UpdateMessageCreated  = "message_created"
	UpdateMessageCallback = "message_callback"
	UpdateBotStarted      = "bot_started"
	UpdateBotStopped      = "bot_stopped"
)

// SubscribedUpdates is the set of update types requested when the webhook is
// registered.
var SubscribedUpdates = []string{
	UpdateMessageCreated,
	UpdateMessageCallback,
	UpdateBotStarted,
	UpdateBotStopped,
}

type User struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	IsBot     bool   `json:"is_bot"`
}

type Recipient struct {
	ChatID   int64  `json:"chat_id"`
	ChatType string `json:"chat_type"`
	UserID   int64  `json:"user_id,omitempty"`
}

type MessageBody struct {
	MID         string       `json:"mid"`
	Seq         int64        `json:"seq"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Message struct {
	Sender    User        `json:"sender"`
	Recipient Recipient   `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Body      MessageBody `json:"body"`
}

type Callback struct {
	Timestamp  int64  `json:"timestamp"`
	CallbackID string `json:"callback_id"`
	Payload    string `json:"payload"`
	User       User   `json:"user"`
}

// Update is the webhook envelope. Which optional fields are set depends on
// UpdateType.
type Update struct {
	UpdateType string    `json:"update_type"`
	Timestamp  int64     `json:"timestamp"`
	Message    *Message  `json:"message,omitempty"`
	Callback   *Callback `json:"callback,omitempty"`
	ChatID     int64     `json:"chat_id,omitempty"`
	User       *User     `json:"user,omitempty"`
}

// Button is an inline keyboard button. Callback buttons carry Payload, link
// buttons carry URL.
type Button struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload,omitempty"`
	URL     string `json:"url,omitempty"`
}

func CallbackButton(text, payload string) Button {
	return Button{Type: "callback", Text: text, Payload: payload}
}

func LinkButton(text, url string) Button {
	return Button{Type: "link", Text: text, URL: url}
}

// Attachment is a message attachment. Payload is kept untyped because its
// shape depends on Type (inline_keyboard, file, ...).
type Attachment struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type keyboardPayload struct {
	Buttons [][]Button `json:"buttons"`
}

type filePayload struct {
	Token string `json:"token"`
}

// BotInfo is returned by GET /me.
type BotInfo struct {
	UserID      int64  `json:"user_id"`
	FirstName   string `json:"first_name"`
	Username    string `json:"username,omitempty"`
	IsBot       bool   `json:"is_bot"`
	Description string `json:"description,omitempty"`
}
