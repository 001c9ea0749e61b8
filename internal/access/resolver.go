// Package access decides which channels a user may read or write.
package access

import (
	"github.com/google/uuid"

	"channel-service/internal/models"
)

// CanRead reports whether user may see channel. isMember is only consulted for
// membership-based channel types.
func CanRead(user models.User, channel models.Channel, isMember bool) bool {
	if !user.Active() {
		return false
	}
	switch channel.Type {
	case models.ChannelCommunity:
		return true
	case models.ChannelLeadersOnly:
		return user.Role.IsLeader()
	case models.ChannelGroup, models.ChannelDirect:
		return isMember
	}
	return false
}

// CanWrite is CanRead restricted to channels that are not archived.
func CanWrite(user models.User, channel models.Channel, isMember bool) bool {
	return !channel.IsArchived && CanRead(user, channel, isMember)
}

// VisibleChannels filters channels down to the ones user may read. An inactive
// user gets an empty, non-nil slice.
func VisibleChannels(user models.User, channels []models.Channel, memberOf []uuid.UUID) []models.Channel {
	visible := make([]models.Channel, 0, len(channels))
	if !user.Active() {
		return visible
	}

	members := make(map[uuid.UUID]struct{}, len(memberOf))
	for _, id := range memberOf {
		members[id] = struct{}{}
	}

	for _, ch := range channels {
		_, isMember := members[ch.ID]
		if CanRead(user, ch, isMember) {
			visible = append(visible, ch)
		}
	}
	return visible
}
