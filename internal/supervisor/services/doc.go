// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package services provides suture.Service wrappers for Milkat components.

Each wrapper translates a component's own lifecycle into suture's
context-aware Serve and names itself through fmt.Stringer for the
supervisor's event log.

# Available Services

HTTP Server (HTTPServerService):
  - ListenAndServe in a goroutine, Shutdown with its own timeout on cancel

WebSocket Hub (WebSocketHubService):
  - Delegates to websocket.Hub.RunWithContext

Realtime Relay (RelayService):
  - Runs eventbus.Relay; a dropped subscription is returned as an error so
    suture resubscribes with backoff

Embedded NATS (EmbeddedNATSService):
  - Watches a server started before the tree and shuts it down on cancel

Voting Scheduler (VotingSchedulerService) and Outbox Retry
(OutboxRetryService):
  - Start/Stop loops adapted to Serve

# Error Semantics

Returning ctx.Err() after cancellation is a normal stop. Any other error
counts as a failure and the service is restarted. Errors wrapping
suture.ErrDoNotRestart stop the service for good.
*/
package services
