// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// Subject names the entities a notification is about.
type Subject struct {
	ProjectID    string
	ProjectTitle string
	SocietyID    string
	ProposalID   string
	VoteID       string
}

type template struct {
	title    string
	priority models.Priority
	message  func(s Subject, p models.Payload) string
}

var templates = map[models.NotificationType]template{
	models.NotifyProjectCreated: {
		title:    "New redevelopment project",
		priority: models.PriorityHigh,
		message: func(s Subject, _ models.Payload) string {
			return fmt.Sprintf("Your society has started the redevelopment project %q.", s.ProjectTitle)
		},
	},
	models.NotifyStatusChanged: {
		title:    "Project status updated",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			if c, ok := p.(*models.StatusChangedPayload); ok {
				return fmt.Sprintf("%q moved from %s to %s.", s.ProjectTitle, humanize(string(c.From)), humanize(string(c.To)))
			}
			return fmt.Sprintf("The status of %q has changed.", s.ProjectTitle)
		},
	},
	models.NotifyProposalSubmitted: {
		title:    "New developer proposal",
		priority: models.PriorityHigh,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("A developer submitted %s for %q.", proposalName(p), s.ProjectTitle)
		},
	},
	models.NotifyProposalShortlisted: {
		title:    "Proposal shortlisted",
		priority: models.PriorityHigh,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("Your proposal %s for %q has been shortlisted.", proposalName(p), s.ProjectTitle)
		},
	},
	models.NotifyProposalSelected: {
		title:    "Proposal selected",
		priority: models.PriorityUrgent,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("Congratulations! Your proposal %s was selected for %q.", proposalName(p), s.ProjectTitle)
		},
	},
	models.NotifyProposalRejected: {
		title:    "Proposal not selected",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("The society selected another developer for %q. Your proposal %s was not selected.", s.ProjectTitle, proposalName(p))
		},
	},
	models.NotifyVotingOpened: {
		title:    "Voting is open",
		priority: models.PriorityHigh,
		message: func(s Subject, p models.Payload) string {
			if v, ok := p.(*models.VotingOpenedPayload); ok {
				return fmt.Sprintf("Cast your vote on %d proposal(s) for %q before %s.",
					v.Proposals, s.ProjectTitle, v.Deadline.UTC().Format(time.RFC1123))
			}
			return fmt.Sprintf("Voting has opened for %q.", s.ProjectTitle)
		},
	},
	models.NotifyVotingReminder: {
		title:    "Voting closes soon",
		priority: models.PriorityHigh,
		message: func(s Subject, p models.Payload) string {
			if v, ok := p.(*models.VotingReminderPayload); ok {
				return fmt.Sprintf("You have not voted on %q yet. Voting closes in about %d hour(s).", s.ProjectTitle, v.HoursRemaining)
			}
			return fmt.Sprintf("You have not voted on %q yet.", s.ProjectTitle)
		},
	},
	models.NotifyVotingClosed: {
		title:    "Voting closed",
		priority: models.PriorityHigh,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("Voting on %q has closed%s.", s.ProjectTitle, outcomeSuffix(p))
		},
	},
	models.NotifyVotingClosedManualPick: {
		title:    "Select a developer",
		priority: models.PriorityUrgent,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("Voting on %q has closed%s. Review the results and select a developer.", s.ProjectTitle, outcomeSuffix(p))
		},
	},
	models.NotifyVotingResultsPublished: {
		title:    "Voting results published",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("Results for %q are available%s.", s.ProjectTitle, outcomeSuffix(p))
		},
	},
	models.NotifyMilestoneCompleted: {
		title:    "Milestone completed",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("%s on %q is complete.", itemName(p, "A milestone"), s.ProjectTitle)
		},
	},
	models.NotifyDocumentUploaded: {
		title:    "New project document",
		priority: models.PriorityLow,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("%s was added to %q.", itemName(p, "A document"), s.ProjectTitle)
		},
	},
	models.NotifyQueryRaised: {
		title:    "New member query",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("A member asked %s on %q.", itemName(p, "a question"), s.ProjectTitle)
		},
	},
	models.NotifyQueryResponded: {
		title:    "Your query was answered",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("The society responded to %s on %q.", itemName(p, "your query"), s.ProjectTitle)
		},
	},
	models.NotifyUpdatePosted: {
		title:    "Project update",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			return fmt.Sprintf("%s was posted on %q.", itemName(p, "An update"), s.ProjectTitle)
		},
	},
	models.NotifyAgreementSigned: {
		title:    "Agreement signed",
		priority: models.PriorityHigh,
		message: func(s Subject, _ models.Payload) string {
			return fmt.Sprintf("The development agreement for %q has been signed.", s.ProjectTitle)
		},
	},
	models.NotifyConstructionStarted: {
		title:    "Construction started",
		priority: models.PriorityHigh,
		message: func(s Subject, _ models.Payload) string {
			return fmt.Sprintf("Construction has started on %q.", s.ProjectTitle)
		},
	},
	models.NotifyConstructionMilestone: {
		title:    "Construction progress",
		priority: models.PriorityMedium,
		message: func(s Subject, p models.Payload) string {
			if c, ok := p.(*models.ConstructionPayload); ok {
				if c.Milestone != "" {
					return fmt.Sprintf("%q reached %s (%d%% complete).", s.ProjectTitle, c.Milestone, c.Progress)
				}
				return fmt.Sprintf("%q is %d%% complete.", s.ProjectTitle, c.Progress)
			}
			return fmt.Sprintf("Construction on %q has progressed.", s.ProjectTitle)
		},
	},
	models.NotifyProjectCompleted: {
		title:    "Project completed",
		priority: models.PriorityHigh,
		message: func(s Subject, _ models.Payload) string {
			return fmt.Sprintf("Redevelopment of %q is complete.", s.ProjectTitle)
		},
	},
}

// Render builds the notification for type t. The payload must be the variant
// registered for t; the recipient is filled in by the Dispatcher.
func Render(t models.NotificationType, s Subject, payload models.Payload) (models.Notification, error) {
	tmpl, ok := templates[t]
	if !ok {
		return models.Notification{}, fmt.Errorf("no template for notification type %q", t)
	}
	if err := models.CheckPayload(t, payload); err != nil {
		return models.Notification{}, err
	}
	return models.Notification{
		Type:     t,
		Title:    tmpl.title,
		Message:  tmpl.message(s, payload),
		Priority: tmpl.priority,
		Data: models.NotificationData{
			ProjectID:  s.ProjectID,
			ProposalID: s.ProposalID,
			VoteID:     s.VoteID,
			SocietyID:  s.SocietyID,
			Metadata:   payload,
		},
	}, nil
}

func proposalName(p models.Payload) string {
	if pp, ok := p.(*models.ProposalPayload); ok && pp.ProposalTitle != "" {
		return fmt.Sprintf("%q", pp.ProposalTitle)
	}
	return "a proposal"
}

func itemName(p models.Payload, fallback string) string {
	if a, ok := p.(*models.ProjectActivityPayload); ok && a.ItemTitle != "" {
		return fmt.Sprintf("%q", a.ItemTitle)
	}
	return fallback
}

func outcomeSuffix(p models.Payload) string {
	o, ok := p.(*models.VotingOutcomePayload)
	if !ok {
		return ""
	}
	verdict := "not approved"
	if o.IsApproved {
		verdict = "approved"
	}
	return fmt.Sprintf(" with %d%% approval (%s)", o.ApprovalPercentage, verdict)
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
