// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package eventbus relays realtime pushes between server instances.

A user may be connected to any instance, so a push produced on one instance
is published to a shared topic and every instance delivers it to its own
websocket hub:

	domain -> notification.Dispatcher -> Relay.Publish -> topic
	topic  -> Relay.Run (every instance) -> websocket.Hub -> clients

Two transports are available through Watermill:

  - local: an in-process gochannel, for a single instance
  - nats: NATS core without JetStream. Pushes are best-effort and stale
    pushes have no value, so no persistence is needed. An embedded NATS
    server can be started for small deployments.

Publishing goes through a gobreaker circuit breaker. When the breaker is
open, or a publish fails, the message is delivered to the local hub
directly so users on the publishing instance still receive it.
*/
package eventbus
