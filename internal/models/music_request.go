/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RequestKind distinguishes plain song requests from dedications.
type RequestKind string

const (
	RequestKindRequest    RequestKind = "request"
	RequestKindDedication RequestKind = "dedication"
)

// RequestStatus is the lifecycle state of a music request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestGenerating RequestStatus = "generating"
	RequestPlaying    RequestStatus = "playing"
	RequestCompleted  RequestStatus = "completed"
	RequestFailed     RequestStatus = "failed" // attempts exhausted
)

// MusicRequest is a listener request for a generated song.
type MusicRequest struct {
	ID          string        `json:"id"`
	Kind        RequestKind   `json:"type"`
	UserName    string        `json:"userName"`
	Message     string        `json:"message"`
	Genre       string        `json:"genre,omitempty"`
	Mood        string        `json:"mood,omitempty"`
	Instruments []string      `json:"instruments,omitempty"`
	DedicatedTo string        `json:"dedicatedTo,omitempty"`
	ShowName    string        `json:"showName"`
	Status      RequestStatus `json:"status"`
	Attempts    int           `json:"attempts"`
	LastError   string        `json:"lastError,omitempty"`
	TrackURL    string        `json:"trackUrl,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
