package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/models"
)

func channelOf(t models.ChannelType) models.Channel {
	return models.Channel{ID: uuid.New(), Type: t, Name: string(t)}
}

func TestVisibleChannelsByRole(t *testing.T) {
	community := channelOf(models.ChannelCommunity)
	leaders := channelOf(models.ChannelLeadersOnly)
	group := channelOf(models.ChannelGroup)
	otherGroup := channelOf(models.ChannelGroup)
	direct := channelOf(models.ChannelDirect)
	all := []models.Channel{community, leaders, group, otherGroup, direct}

	member := models.User{ID: "u1", Role: models.RoleMember, Status: models.StatusActive}
	got := VisibleChannels(member, all, []uuid.UUID{group.ID, direct.ID})
	require.Equal(t, []models.Channel{community, group, direct}, got)

	for _, role := range []models.Role{models.RoleAdmin, models.RoleGroupLeader, models.RoleAssistantLeader} {
		leader := models.User{ID: "u2", Role: role, Status: models.StatusActive}
		got := VisibleChannels(leader, all, nil)
		assert.Equal(t, []models.Channel{community, leaders}, got, "role %s", role)
	}
}

func TestVisibleChannelsInactiveUser(t *testing.T) {
	all := []models.Channel{channelOf(models.ChannelCommunity)}

	for _, status := range []models.UserStatus{models.StatusPending, models.StatusSuspended} {
		user := models.User{ID: "u1", Role: models.RoleAdmin, Status: status}
		got := VisibleChannels(user, all, nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestCanWriteArchived(t *testing.T) {
	user := models.User{ID: "u1", Role: models.RoleMember, Status: models.StatusActive}
	ch := channelOf(models.ChannelCommunity)
	require.True(t, CanWrite(user, ch, false))

	ch.IsArchived = true
	assert.True(t, CanRead(user, ch, false))
	assert.False(t, CanWrite(user, ch, false))
}
