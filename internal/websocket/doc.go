// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package websocket pushes realtime redevelopment events to connected users.

Connections are grouped into rooms:

  - user:<userID>       every connection of one user
  - society:<societyID> every connection of an active society member
  - project:<projectID> connections following one redevelopment project

A handshake must carry a valid access token (Authorization header or the
"token" query parameter). Invalid or missing tokens are rejected with 401
before the upgrade. On connect the client joins its user room, the rooms of
every society it belongs to, and the rooms of those societies' projects.
Further project rooms can be joined on demand:

	{"type":"join","room":"project:8f1c..."}
	{"type":"leave","room":"project:8f1c..."}
	{"type":"ping"}

The server answers with joined, left, pong or error messages. Domain pushes
use the realtime event name as the message type:

	{"type":"vote_cast","room":"project:8f1c...","data":{...},"timestamp":"..."}

Delivery is best-effort and at most once. The durable notification record is
the source of truth; a client reconnecting after missing a push reads its
inbox. A client whose send buffer is full is disconnected rather than
blocking the hub.

Each client runs a readPump and a writePump goroutine. The Hub runs on a
single goroutine under the supervisor via RunWithContext and processes
registrations ahead of deliveries.
*/
package websocket
