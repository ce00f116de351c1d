// Package auth implements the credential codec, the session lifecycle
// manager and the caller context shared by the authorization middleware
// and the auth handlers.
package auth

import "errors"

// Sentinel errors for the auth core. Handlers and middleware collapse all
// of them into a generic 401/403 so internal distinctions (signature vs.
// expiry vs. malformed) are never leaked to clients. Store I/O failures are
// deliberately NOT part of this set: they propagate untouched and surface
// as 500, since a database outage is not evidence that a token is invalid.
var (
	// ErrMissingCredentials indicates neither an access nor a refresh
	// token was presented.
	ErrMissingCredentials = errors.New("token requerido")

	// ErrInvalidSignature indicates a token whose signature does not
	// verify under the expected secret.
	ErrInvalidSignature = errors.New("firma de token inválida")

	// ErrMalformed indicates a token that cannot be parsed, or one missing
	// a required claim (subject, or the purpose tag on reset tokens).
	ErrMalformed = errors.New("token malformado")

	// ErrExpired indicates a structurally valid token past its expiry.
	// On an access token this is the one failure that triggers the
	// refresh fallback instead of outright rejection.
	ErrExpired = errors.New("token expirado")

	// ErrSessionNotFound indicates a refresh token that points to no
	// active session: revoked, expired, deleted, or superseded by a
	// concurrent rotation. Always fatal for the request.
	ErrSessionNotFound = errors.New("sesión no encontrada")

	// ErrRoleForbidden indicates an authenticated caller whose role is
	// not in the route's allow-list.
	ErrRoleForbidden = errors.New("acceso denegado")

	// ErrInvalidCredentials indicates a failed email/password check at
	// login.
	ErrInvalidCredentials = errors.New("credenciales inválidas")
)
