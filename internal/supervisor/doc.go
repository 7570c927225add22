// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

/*
Package supervisor provides process supervision for Milkat using suture v4.

Every long-running component runs under a hierarchical supervisor tree with
automatic restart and graceful shutdown:

	RootSupervisor ("milkat")
	├── DataSupervisor ("data-layer")
	│   └── OutboxRetryService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EmbeddedNATSService (when eventbus.embedded is set)
	│   ├── WebSocketHubService
	│   └── RelayService
	├── WorkerSupervisor ("worker-layer")
	│   └── VotingSchedulerService (when voting.scheduler_enabled is set)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Layers restart independently: a relay that loses its broker is restarted
with backoff while the HTTP server keeps answering.

Supervisor events are logged through sutureslog. The slog.Logger passed to
NewSupervisorTree is normally logging.NewSlogLogger(), which forwards to
zerolog.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddWorkerService(services.NewVotingSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
