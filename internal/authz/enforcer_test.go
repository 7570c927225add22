// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package authz

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func newTestEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(nil)
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	e := newTestEnforcer(t)

	tests := []struct {
		role   string
		path   string
		action string
		want   bool
	}{
		// Reads open to every role
		{"member", "/api/v1/projects/p-1", ActionRead, true},
		{"developer", "/api/v1/projects/p-1/proposals", ActionRead, true},
		{"member", "/api/v1/projects/p-1/votes/tally", ActionRead, true},
		{"developer", "/api/v1/notifications", ActionRead, true},
		{"member", "/api/v1/notifications/n-1/read", ActionWrite, true},
		{"member", "/api/v1/projects/p-1/voting/check", ActionWrite, true},

		// Voting
		{"member", "/api/v1/projects/p-1/votes", ActionWrite, true},
		{"developer", "/api/v1/projects/p-1/votes", ActionWrite, false},
		{"society_owner", "/api/v1/projects/p-1/votes", ActionWrite, false},
		{"admin", "/api/v1/projects/p-1/votes", ActionWrite, true},

		// Lifecycle is owner-only
		{"society_owner", "/api/v1/projects", ActionWrite, true},
		{"member", "/api/v1/projects", ActionWrite, false},
		{"society_owner", "/api/v1/projects/p-1/voting/open", ActionWrite, true},
		{"member", "/api/v1/projects/p-1/voting/close", ActionWrite, false},
		{"developer", "/api/v1/projects/p-1/developer", ActionWrite, false},
		{"society_owner", "/api/v1/projects/p-1/proposals/x/shortlist", ActionWrite, true},
		{"society_owner", "/api/v1/projects/p-1/queries/q-1/response", ActionWrite, true},
		{"member", "/api/v1/projects/p-1/queries/q-1/response", ActionWrite, false},

		// Proposals and queries
		{"developer", "/api/v1/projects/p-1/proposals", ActionWrite, true},
		{"member", "/api/v1/projects/p-1/proposals", ActionWrite, false},
		{"member", "/api/v1/projects/p-1/queries", ActionWrite, true},
		{"developer", "/api/v1/projects/p-1/queries", ActionWrite, false},

		// Membership directory
		{"society_owner", "/api/v1/societies/s-1/members/u-1", ActionWrite, true},
		{"society_owner", "/api/v1/societies/s-1/members/u-1", ActionDelete, true},
		{"member", "/api/v1/societies/s-1/members/u-1", ActionDelete, true},
		{"developer", "/api/v1/societies/s-1/members/u-1", ActionWrite, false},

		// Patterns do not leak across segments
		{"member", "/api/v1/projects/p-1/votes/extra", ActionWrite, false},
		{"society_owner", "/api/v1/projects/p-1/cancel/now", ActionWrite, false},

		{"", "/api/v1/projects/p-1", ActionRead, false},
		{"stranger", "/api/v1/projects/p-1", ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.action+" "+tt.path, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.path, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce(%q, %q, %q) = %v, want %v", tt.role, tt.path, tt.action, got, tt.want)
			}
		})
	}
}

func TestEnforcer_RoleHierarchy(t *testing.T) {
	e := newTestEnforcer(t)

	roles, err := e.RolesFor("admin")
	if err != nil {
		t.Fatalf("RolesFor() error = %v", err)
	}
	sort.Strings(roles)
	want := []string{"authenticated", "developer", "member", "society_owner"}
	if len(roles) != len(want) {
		t.Fatalf("RolesFor(admin) = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("RolesFor(admin) = %v, want %v", roles, want)
			break
		}
	}
}

func TestEnforcer_PolicyFromFile(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(policy, []byte("p, auditor, /api/v1/projects/:projectID, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := NewEnforcer(&EnforcerConfig{PolicyPath: policy})
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	defer e.Close()

	if ok, _ := e.Enforce("auditor", "/api/v1/projects/p-1", ActionRead); !ok {
		t.Error("file policy should allow auditor read")
	}
	if ok, _ := e.Enforce("member", "/api/v1/projects/p-1", ActionRead); ok {
		t.Error("embedded policy should not apply when a file is given")
	}
}

func TestEnforcementCache(t *testing.T) {
	c := newEnforcementCache(time.Minute)
	defer c.stop()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.set("member", "/api/v1/projects/p-1", ActionRead, true)
	if allowed, ok := c.get("member", "/api/v1/projects/p-1", ActionRead); !ok || !allowed {
		t.Fatalf("get() = %v, %v", allowed, ok)
	}
	if _, ok := c.get("member", "/api/v1/projects/p-2", ActionRead); ok {
		t.Error("different path should miss")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get("member", "/api/v1/projects/p-1", ActionRead); ok {
		t.Error("expired entry should miss")
	}
	c.evictExpired()
	if c.len() != 0 {
		t.Errorf("len() = %d after eviction", c.len())
	}

	c.stop()
	c.stop()
}
