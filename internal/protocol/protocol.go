// Package protocol defines the JSON messages exchanged on the control websocket.
package protocol

import "encoding/json"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeNeedAuth is sent by the server as soon as a control connection opens
	TypeNeedAuth MessageType = "need_auth"

	// TypeAuthOK and TypeAuthFailed answer a TypeAuth attempt
	TypeAuthOK     MessageType = "auth_ok"
	TypeAuthFailed MessageType = "auth_failed"

	// TypeError carries a notice such as "Unauthorized"
	TypeError MessageType = "error"

	// TypeAuth is sent by the controller with the shared password
	TypeAuth MessageType = "auth"
)

// Control events sent by an authorized controller.
const (
	TypeMouseMove   MessageType = "mouse_move"
	TypeMouseClick  MessageType = "mouse_click"
	TypeKeyType     MessageType = "key_type"
	TypeKeyPress    MessageType = "key_press"
	TypeMouseScroll MessageType = "mouse_scroll"
	TypeMouseDown   MessageType = "mouse_down"
	TypeMouseUp     MessageType = "mouse_up"
)

// UnauthorizedMessage is the text of the notice sent for events on an
// unauthorized connection.
const UnauthorizedMessage = "Unauthorized"

// Message is the generic container for all WebSocket messages.
// Payload is kept raw so that receivers can read fields leniently.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusPayload is the payload for TypeNeedAuth, TypeAuthOK and TypeAuthFailed
type StatusPayload struct {
	OK bool `json:"ok"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Message string `json:"message"`
}

// AuthPayload is the payload for TypeAuth
type AuthPayload struct {
	Password string `json:"password"`
}

// MovePayload is the payload for TypeMouseMove. Coordinates are normalized to [0,1].
type MovePayload struct {
	NX float64 `json:"nx"`
	NY float64 `json:"ny"`
}

// ClickPayload is the payload for TypeMouseClick
type ClickPayload struct {
	Button string `json:"button,omitempty"`
	Double bool   `json:"double,omitempty"`
}

// ButtonPayload is the payload for TypeMouseDown and TypeMouseUp
type ButtonPayload struct {
	Button string `json:"button,omitempty"`
}

// TextPayload is the payload for TypeKeyType
type TextPayload struct {
	Text string `json:"text"`
}

// KeyPayload is the payload for TypeKeyPress
type KeyPayload struct {
	Key string `json:"key"`
}

// ScrollPayload is the payload for TypeMouseScroll. Positive DY scrolls up.
type ScrollPayload struct {
	DX int `json:"dx,omitempty"`
	DY int `json:"dy,omitempty"`
}

// NewMessage builds a message with payload marshaled to JSON.
// A nil payload produces a message without a payload field.
func NewMessage(t MessageType, payload interface{}) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = data
	return msg, nil
}

func mustMessage(t MessageType, payload interface{}) Message {
	msg, err := NewMessage(t, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// NeedAuth returns the greeting sent to every new control connection.
func NeedAuth() Message {
	return mustMessage(TypeNeedAuth, StatusPayload{OK: true})
}

// AuthOK returns the reply to a correct password.
func AuthOK() Message {
	return mustMessage(TypeAuthOK, StatusPayload{OK: true})
}

// AuthFailed returns the reply to a wrong password.
func AuthFailed() Message {
	return mustMessage(TypeAuthFailed, StatusPayload{OK: false})
}

// Unauthorized returns the notice sent when an unauthorized connection issues an event.
func Unauthorized() Message {
	return mustMessage(TypeError, ErrorPayload{Message: UnauthorizedMessage})
}
