// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package main is the entry point for the Milkat server.

Milkat runs a housing society's redevelopment: projects move from planning
through tendering and member voting to developer selection and construction.
Members vote on shortlisted developer proposals, the scheduler closes votes at
their deadline or as soon as a majority has voted, and every state change fans
out as persisted notifications plus realtime pushes.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("milkat")
	├── DataSupervisor ("data-layer")
	│   └── Outbox retry loop (replays notification records DuckDB rejected)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Embedded NATS server (realtime.embedded_server=true)
	│   ├── WebSocket hub (user, society and project rooms)
	│   └── Realtime relay (NATS or in-process bus to the hub)
	├── WorkerSupervisor ("worker-layer")
	│   └── Voting scheduler (deadline scan, majority sweep)
	└── APISupervisor ("api-layer")
	    └── HTTP server (REST API, /api/v1/ws, /metrics)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, optional YAML file, environment
 2. Logging: zerolog, console or JSON
 3. Database: DuckDB holding members, projects, proposals, votes, notifications
 4. Outbox: BadgerDB staging area for notification records
 5. Realtime: WebSocket hub, transport (local or NATS) and relay
 6. Domain: notification dispatcher, redevelopment service, voting scheduler
 7. Auth: JWT validation and Casbin route policy
 8. HTTP server and supervisor tree

# Configuration

Environment variables override the config file (CONFIG_PATH or config.yaml):

	JWT_SECRET                          32+ character signing secret (required)
	HTTP_PORT                           listen port (default 5000)
	DUCKDB_PATH                         database file
	VOTING_MINIMUM_APPROVAL_PERCENTAGE  approval threshold for new projects (default 51)
	VOTING_SCHEDULER_ENABLED            run the deadline scan and majority sweep
	REALTIME_BUS                        local or nats
	REALTIME_NATS_URL                   external NATS server
	REALTIME_EMBEDDED_SERVER            start NATS in-process
	OUTBOX_PATH                         BadgerDB directory

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests, the scheduler finishes its current pass, the relay unsubscribes and
the embedded NATS server shuts down, each within server.shutdown_timeout.

# Example Usage

Single instance:

	export JWT_SECRET=$(openssl rand -base64 32)
	./milkat

Several instances sharing one NATS bus:

	export REALTIME_BUS=nats
	export REALTIME_NATS_URL=nats://nats:4222
	./milkat
*/
package main
