// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package auth authenticates API and websocket requests with bearer JWTs.

Tokens are HMAC-SHA256 signed and carry the user ID in the subject plus a
platform role (admin, society_owner, member, developer). Issuing tokens for
real users belongs to the identity service in front of Milkat; GenerateToken
exists for tooling and tests.

Key Components:

  - JWTManager: token generation and validation
  - Middleware: rejects requests without a valid token and stores the
    Claims in the request context
  - TokenFromRequest: reads "Authorization: Bearer" or the ?token= query
    parameter used by browser websocket clients

Usage Example:

	tokens, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	r.Use(auth.NewMiddleware(tokens).Authenticate)

	// in a handler
	claims, ok := auth.ClaimsFromContext(r.Context())

Role checks per route live in package authz; resource ownership (the owner
of a project) is checked by the API handlers.
*/
package auth
