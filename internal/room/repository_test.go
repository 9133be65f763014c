package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockQueryTargetsRoomRowOnly(t *testing.T) {
	r := &pgxRepository{}

	sql, args, err := r.lockRoom("room-1").ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "JOIN public.hotels h ON h.id = r.hotel_id")
	assert.Contains(t, sql, "WHERE r.id = $1")
	assert.True(t, strings.HasSuffix(sql, "FOR NO KEY UPDATE OF r"), sql)
	assert.NotContains(t, sql, " FOR UPDATE")
	assert.Equal(t, []any{"room-1"}, args)
}
