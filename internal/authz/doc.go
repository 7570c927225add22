// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

// Package authz enforces role-based access to API routes with Casbin.
//
// The subject is the role carried in the access token (admin,
// society_owner, member, developer). Objects are request paths matched with
// keyMatch2 patterns such as /api/v1/projects/:projectID/votes, and actions
// are read, write or delete derived from the HTTP method. The model and
// policy are embedded and can be replaced with files.
//
// Route permissions answer "may this kind of user call this endpoint".
// Whether a particular owner owns a particular project is checked by the API
// handlers, and whether a voter belongs to the society by the domain service.
package authz
