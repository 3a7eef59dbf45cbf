// Package security holds the HTTP middleware that protects the book
// forms: CSRF tokens, cookie sessions carrying flash messages, security
// headers, per-IP rate limiting of writes and a read-only switch.
//
// Order matters when installing them on a gin engine. CSRF runs before the
// session middleware so that the session context survives the request
// replacement done by gorilla/csrf.
package security
