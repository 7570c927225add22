// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package config

import (
	"errors"
	"fmt"
	"strings"
)

const minJWTSecretLength = 32

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateVoting(); err != nil {
		return err
	}
	if err := c.validateRealtime(); err != nil {
		return err
	}
	return c.validateOutbox()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("security.jwt_secret must be at least %d characters", minJWTSecretLength)
	}
	if c.Security.SessionTimeout <= 0 {
		return errors.New("security.session_timeout must be positive")
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitRequests <= 0 || c.Security.RateLimitWindow <= 0) {
		return errors.New("security.rate_limit_requests and rate_limit_window must be positive")
	}
	return nil
}

func (c *Config) validateVoting() error {
	v := c.Voting
	if v.MinimumApprovalPercentage < 1 || v.MinimumApprovalPercentage > 100 {
		return fmt.Errorf("voting.minimum_approval_percentage must be between 1 and 100, got %d", v.MinimumApprovalPercentage)
	}
	if strings.TrimSpace(v.DefaultSession) == "" {
		return errors.New("voting.default_session is required")
	}
	if v.SchedulerEnabled {
		if v.DeadlineScanInterval <= 0 || v.MajoritySweepInterval <= 0 {
			return errors.New("voting scan intervals must be positive when the scheduler is enabled")
		}
		if v.EvaluationTimeout <= 0 {
			return errors.New("voting.evaluation_timeout must be positive")
		}
	}
	if v.ReminderWindow < 0 || v.NotificationTTL < 0 {
		return errors.New("voting.reminder_window and notification_ttl cannot be negative")
	}
	return nil
}

func (c *Config) validateRealtime() error {
	r := c.Realtime
	switch r.Bus {
	case "local":
	case "nats":
		if r.NATSURL == "" && !r.EmbeddedServer {
			return errors.New("realtime.nats_url is required when realtime.bus is nats")
		}
	default:
		return fmt.Errorf("realtime.bus must be local or nats, got %q", r.Bus)
	}
	if r.Topic == "" {
		return errors.New("realtime.topic is required")
	}
	if r.ClientSendBuffer <= 0 {
		return errors.New("realtime.client_send_buffer must be positive")
	}
	if r.ClientMessageRate <= 0 || r.ClientMessageBurst <= 0 {
		return errors.New("realtime client message rate and burst must be positive")
	}
	return nil
}

func (c *Config) validateOutbox() error {
	if !c.Outbox.InMemory && c.Outbox.Path == "" {
		return errors.New("outbox.path is required unless outbox.in_memory is set")
	}
	if c.Outbox.RetryInterval <= 0 {
		return errors.New("outbox.retry_interval must be positive")
	}
	if c.Outbox.MaxRetries < 1 {
		return errors.New("outbox.max_retries must be at least 1")
	}
	return nil
}
