// Package xerrors defines the error-kind taxonomy shared across the engines.
//
// Every surfaced error carries a stable Kind and a short human-readable Reason so
// operators and tests can assert on the kind without parsing prose, per the error
// handling design in the specification.
package xerrors

import "fmt"

// Kind is a stable error classification. Components branch on Kind, never on
// Reason text.
type Kind string

const (
	Transport       Kind = "transport"        // network failure reaching an adapter; retriable
	Protocol        Kind = "protocol"         // malformed message from an adapter; stream continues
	Authentication  Kind = "authentication"   // credentials missing or rejected; fatal for that adapter
	RateLimit       Kind = "rate_limit"       // adapter signals throttling; retriable after backoff
	RiskRejected    Kind = "risk_rejected"    // pre-trade gate failed; not retried
	InvalidArgument Kind = "invalid_argument" // malformed order, unknown symbol, etc.
	Conflict        Kind = "conflict"         // duplicate client/strategy/backtest id
	Precondition    Kind = "precondition"     // kill-switch active, illegal state transition requested
	Internal        Kind = "internal"         // invariant violated
)

// Error is the single typed error used across the core. It wraps an optional
// underlying cause and exposes it via Unwrap so callers can still use
// errors.Is/errors.As against transport-level causes.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &xerrors.Error{Kind: xerrors.RiskRejected}) work by
// comparing kinds when the target is itself an *Error; the target's Reason
// is not compared, matching the common "is this a risk-rejected error" check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

func New(kind Kind, reason string) *Error                { return newErr(kind, reason, nil) }
func Wrap(kind Kind, reason string, cause error) *Error  { return newErr(kind, reason, cause) }
func TransportErr(reason string, cause error) *Error      { return newErr(Transport, reason, cause) }
func ProtocolErr(reason string, cause error) *Error       { return newErr(Protocol, reason, cause) }
func AuthenticationErr(reason string, cause error) *Error { return newErr(Authentication, reason, cause) }
func RateLimitErr(reason string, cause error) *Error      { return newErr(RateLimit, reason, cause) }
func RiskRejectedErr(reason string) *Error                { return newErr(RiskRejected, reason, nil) }
func InvalidArgumentErr(reason string) *Error              { return newErr(InvalidArgument, reason, nil) }
func ConflictErr(reason string) *Error                     { return newErr(Conflict, reason, nil) }
func PreconditionErr(reason string) *Error                 { return newErr(Precondition, reason, nil) }
func InternalErr(reason string, cause error) *Error        { return newErr(Internal, reason, cause) }

// OfKind reports whether err (or any error it wraps) is an *Error of the given
// kind.
func OfKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return false
	}
	return e.Kind == kind
}
