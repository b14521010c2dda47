package flow

import "fmt"

// ErrorCode is a stable identifier for a recoverable engine error.
type ErrorCode string

const (
	// ErrParentExtentWithoutParent: extent "parent" on a node that has no parent.
	ErrParentExtentWithoutParent ErrorCode = "005"
	// ErrEdgeEndpointMissing: an edge needs both a source and a target.
	ErrEdgeEndpointMissing ErrorCode = "006"
	// ErrEdgeNotFound: the edge to reconnect does not exist.
	ErrEdgeNotFound ErrorCode = "007"
	// ErrNodeNotFound: no node with the given id.
	ErrNodeNotFound ErrorCode = "012"
	// ErrNodeNotInitialized: the node was used before it was measured.
	ErrNodeNotInitialized ErrorCode = "015"
)

var messages = map[ErrorCode]string{
	ErrParentExtentWithoutParent: "only child nodes can use a parent extent",
	ErrEdgeEndpointMissing:       "can't create edge, an edge needs a source and a target",
	ErrEdgeNotFound:              "the old edge with id %q does not exist",
	ErrNodeNotFound:              "node with id %q does not exist, it may have been removed",
	ErrNodeNotInitialized:        "it seems that you are trying to drag a node that is not initialized",
}

// Error is a recoverable error reported through an ErrorHandler.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("flow %s: %s", e.Code, e.Message)
}

// NewError builds an Error for code, formatting args into its message.
func NewError(code ErrorCode, args ...any) *Error {
	msg := messages[code]
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Code: code, Message: msg}
}

// ErrorHandler receives recoverable errors. A nil handler drops them.
type ErrorHandler func(*Error)

func (h ErrorHandler) report(code ErrorCode, args ...any) {
	if h != nil {
		h(NewError(code, args...))
	}
}
