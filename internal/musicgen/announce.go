/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package musicgen

import (
	"fmt"

	"github.com/friendsincode/airtime/internal/models"
)

// Announcement is what the host says before generating a request.
func Announcement(req models.MusicRequest) string {
	if req.Kind == models.RequestKindDedication {
		return fmt.Sprintf(
			"This next song is a special dedication from %s to %s. %s says: \"%s\". Here's a beautiful AI-generated song just for you.",
			req.UserName, req.DedicatedTo, req.UserName, req.Message,
		)
	}
	return fmt.Sprintf(
		"Coming up next, we have a song request from %s. They asked for: \"%s\". Let me generate something special based on that request.",
		req.UserName, req.Message,
	)
}
