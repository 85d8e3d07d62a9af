// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jabber

import (
	"strconv"

	"mellium.im/jabber/stanza"
)

// sendInitialPresence announces availability with the configured priority.
func (c *Client) sendInitialPresence() error {
	p := stanza.Presence{}
	return c.Send(p.Wrap(textElement("priority", strconv.Itoa(c.cfg.priority()))))
}
