// Package fetch wraps a single remote brokerage call with one bounded retry
// that forces re-authentication before retrying.
//
// The session token expires unpredictably mid-run, and the driver does not
// distinguish an expired token from other failures. Every failure is
// therefore answered the same way: one forced re-login, one retry, then
// give up. The bound keeps a persistently broken session or a genuinely bad
// request from looping forever.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
)

// Reauthenticator restores session validity. session.Session satisfies it.
type Reauthenticator interface {
	Login(ctx context.Context) error
}

// RemoteCallError is the terminal failure of a remote call that could not be
// completed even after re-authentication.
type RemoteCallError struct {
	Op  string
	Err error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call %s failed after reauthentication retry: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// Execute invokes call once and returns its result on success. On failure it
// forces a re-login and invokes call exactly once more; the second outcome
// is terminal either way.
//
// When the re-login itself fails, the returned *RemoteCallError wraps the
// original call failure: the session could not be recovered, so the first
// error is the one that matters.
func Execute[T any](ctx context.Context, auth Reauthenticator, op string, call func(ctx context.Context) (T, error)) (T, error) {
	out, err := call(ctx)
	if err == nil {
		return out, nil
	}

	slog.Warn("remote call failed, forcing re-login", "op", op, "error", err)

	var zero T
	if lerr := auth.Login(ctx); lerr != nil {
		return zero, &RemoteCallError{Op: op, Err: fmt.Errorf("session not recovered (re-login: %v): %w", lerr, err)}
	}

	out, err = call(ctx)
	if err != nil {
		return zero, &RemoteCallError{Op: op, Err: err}
	}
	return out, nil
}
