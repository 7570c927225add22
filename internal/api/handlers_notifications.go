// Milkat - Housing Society Redevelopment Platform
// Copyright 2026 Yash Dhankecha
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Yashdhankecha/Milkat-post-sub004

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Yashdhankecha/Milkat-post-sub004/internal/database"
	"github.com/Yashdhankecha/Milkat-post-sub004/internal/models"
)

// ListNotifications returns a page of the caller's inbox, newest first.
//
// Query parameters: unread=true, type, limit (1-100, default 20), offset.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := database.NotificationFilter{
		RecipientID: claims.UserID(),
		UnreadOnly:  q.Get("unread") == "true",
		Type:        models.NotificationType(q.Get("type")),
		Limit:       getIntParam(r, "limit", 20),
		Offset:      getIntParam(r, "offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "limit must be between 1 and 100", nil)
		return
	}
	if filter.Offset < 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "offset must not be negative", nil)
		return
	}

	items, total, err := h.db.ListNotifications(r.Context(), filter, h.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	respondList(w, r, items, total)
}

// UnreadCount returns the number of unread, unexpired notifications.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.db.CountUnread(r.Context(), claims.UserID(), h.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]int{"unread": n})
}

// MarkNotificationRead marks one of the caller's notifications read.
// Another user's notification id answers 404.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "notificationID")
	if err := h.db.MarkNotificationRead(r.Context(), id, claims.UserID(), h.now()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{"id": id, "is_read": true})
}

// MarkAllNotificationsRead marks the caller's whole inbox read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.db.MarkAllNotificationsRead(r.Context(), claims.UserID(), h.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]int64{"updated": n})
}
