package telegram

import "fmt"

// ErrorKind classifies a failed delivery.
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindInvalidPayload
	KindInvalidChat
	KindForbidden
	KindTimeout
	KindNetwork
	KindRemoteAPI
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindInvalidPayload:
		return "invalid_payload"
	case KindInvalidChat:
		return "invalid_chat"
	case KindForbidden:
		return "forbidden"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindRemoteAPI:
		return "remote_api"
	default:
		return "unknown"
	}
}

// Error is returned by Sender for every classified delivery failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telegram %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("telegram %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}
