package common

// AuthorizationHeaderName is the HTTP header that carries the session token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed on every response so log lines can be
// correlated with client reports.
const RequestIDHeaderName = "X-Request-ID"
