package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so transports can map it without knowing every named error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindSoldOut
	KindInvalidTransition
	KindAuthorization
	KindInfrastructure
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindSoldOut:
		return "sold_out"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindAuthorization:
		return "authorization"
	case KindInfrastructure:
		return "infrastructure"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the core.
// Two errors match under errors.Is when their codes are equal, so named errors
// keep matching after a field or cause has been attached.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorKind names the kind for traces and logs
func (e *Error) ErrorKind() string {
	return e.Kind.String()
}

// Fault reports a failure of the system rather than a rejected request
func (e *Error) Fault() bool {
	return e.Kind == KindInfrastructure || e.Kind == KindUnknown
}

// WithField returns a copy of e that names the offending input field
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// Codes for category-level errors created on the fly
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeSoldOut           = "SOLD_OUT"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeInfrastructure    = "STORAGE_UNAVAILABLE"
)

// Named errors
var (
	ErrInvalidContentType = &Error{Kind: KindValidation, Code: "INVALID_CONTENT_TYPE", Field: "content_type", Message: "unsupported content type"}
	ErrSelfFollow         = &Error{Kind: KindValidation, Code: "SELF_FOLLOW", Field: "target", Message: "a profile cannot follow itself"}
	ErrDuplicateEdge      = &Error{Kind: KindConflict, Code: "DUPLICATE_EDGE", Message: "already following this target"}
	ErrDuplicateLike      = &Error{Kind: KindConflict, Code: "DUPLICATE_LIKE", Message: "post already liked"}
	ErrInvalidParent      = &Error{Kind: KindValidation, Code: "INVALID_PARENT", Field: "parent_id", Message: "parent comment does not belong to this post"}
	ErrProfileExists      = &Error{Kind: KindConflict, Code: "PROFILE_EXISTS", Field: "user_id", Message: "profile already exists for this identity"}
	ErrClubNameTaken      = &Error{Kind: KindConflict, Code: "CLUB_NAME_TAKEN", Field: "name", Message: "club name already in use"}
	ErrTagExists          = &Error{Kind: KindConflict, Code: "TAG_ALREADY_ATTACHED", Field: "tag", Message: "tag already attached to post"}
	ErrAdminExists        = &Error{Kind: KindConflict, Code: "ADMIN_EXISTS", Field: "user_id", Message: "user already administers this club"}
	ErrCreatorRemoval     = &Error{Kind: KindValidation, Code: "CREATOR_REMOVAL", Field: "user_id", Message: "the club creator cannot leave the admin set"}
	ErrSoldOut            = &Error{Kind: KindSoldOut, Code: CodeSoldOut, Message: "event is sold out"}
	ErrAlreadyRedeemed    = &Error{Kind: KindConflict, Code: "TICKET_ALREADY_REDEEMED", Field: "code", Message: "ticket already redeemed"}
	ErrTicketNotValidNow  = &Error{Kind: KindValidation, Code: "TICKET_OUTSIDE_WINDOW", Field: "code", Message: "ticket is outside its validity window"}
	ErrPriceMismatch      = &Error{Kind: KindValidation, Code: "PRICE_MISMATCH", Field: "price", Message: "price does not match the event ticket price"}
	ErrNotClubAdmin       = &Error{Kind: KindAuthorization, Code: "NOT_CLUB_ADMIN", Message: "actor is not in the club admin set"}
	ErrNotOwner           = &Error{Kind: KindAuthorization, Code: "NOT_OWNER", Message: "actor does not own this resource"}
)

// Validation builds a ValidationError for field
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError naming the dangling reference
func NotFound(entity, field, id string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Field: field, Message: fmt.Sprintf("%s %q not found", entity, id)}
}

// Conflict builds a ConflictError for a duplicate unique entity
func Conflict(field, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition builds an InvalidStatusTransitionError
func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Code: CodeInvalidTransition, Field: "status", Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// Infrastructure wraps a storage or broker failure so it stays distinct from domain errors
func Infrastructure(op string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: CodeInfrastructure, Message: op, Err: err}
}

// KindOf reports the kind of err, KindUnknown for foreign errors
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
