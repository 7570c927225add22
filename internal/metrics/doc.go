// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package metrics registers the Prometheus collectors exposed at /metrics.

Collectors are package-level promauto variables so any package can record
without plumbing a registry through constructors.

HTTP Metrics:
  - http_requests_total (method, endpoint, status)
  - http_request_duration_seconds (method, endpoint)
  - http_requests_in_flight
  - http_rate_limit_hits_total (endpoint)

Voting Metrics:
  - milkat_votes_cast_total (session, vote)
  - milkat_voting_closed_total (reason)
  - milkat_developers_selected_total

Scheduler Metrics:
  - milkat_scheduler_runs_total (cadence)
  - milkat_scheduler_run_duration_seconds (cadence)
  - milkat_scheduler_evaluation_errors_total (cadence)
  - milkat_voting_reminders_sent_total

Notification Metrics:
  - milkat_notifications_persisted_total (type)
  - milkat_notification_failures_total (stage)
  - milkat_notifications_purged_total
  - milkat_realtime_pushes_total (scope)
  - milkat_outbox_pending_entries
  - milkat_outbox_retries_total (result)

WebSocket and circuit breaker collectors follow the same naming as the
HTTP ones.
*/
package metrics
