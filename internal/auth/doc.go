// Package auth issues and verifies the bearer tokens that guard the
// driver's REST API.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. Each carries one
// of three roles (viewer, operator, admin) mapped statically to the
// permissions the API checks. Tokens are minted offline with
// `hassdriver token`; there are no user accounts.
package auth
