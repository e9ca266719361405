package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

func useMemoryStore(t *testing.T) {
	t.Helper()
	SetStore(NewMemoryStore())
	t.Cleanup(func() { SetStore(nil) })
}

func TestRevoke(t *testing.T) {
	useMemoryStore(t)

	revoked, err := IsRevoked("jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, Revoke("jti-1", time.Minute))
	revoked, err = IsRevoked("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Already expired tokens need no entry.
	require.NoError(t, Revoke("jti-2", 0))
	revoked, err = IsRevoked("jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Error(t, Revoke("", time.Minute))
}

func TestAdminSnapshotRoundTripAndInvalidate(t *testing.T) {
	useMemoryStore(t)

	admin, err := models.NewAdmin("staff", "changeme123", permission.RoleAdmin, []permission.Token{permission.ReportView, permission.ReportVerify})
	require.NoError(t, err)
	admin.ID = 9

	require.NoError(t, PutAdminSnapshot(SnapshotOf(admin)))
	snap, ok, err := GetAdminSnapshot(9)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, snap.PermissionSet().CanVerifyReports())
	assert.False(t, snap.PermissionSet().CanRejectReports())

	require.NoError(t, InvalidateAdmin(9))
	_, ok, err = GetAdminSnapshot(9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotFromBeforeInvalidationIsIgnored(t *testing.T) {
	useMemoryStore(t)

	admin, err := models.NewAdmin("staff", "changeme123", permission.RoleAdmin, []permission.Token{permission.ReportView})
	require.NoError(t, err)
	admin.ID = 4

	gen, err := AdminGeneration(4)
	require.NoError(t, err)
	stale := SnapshotOf(admin)
	stale.Generation = gen

	require.NoError(t, InvalidateAdmin(4))
	// written back after the mutation
	require.NoError(t, PutAdminSnapshot(stale))
	_, ok, err := GetAdminSnapshot(4)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh := SnapshotOf(admin)
	fresh.Generation, err = AdminGeneration(4)
	require.NoError(t, err)
	assert.NotEqual(t, gen, fresh.Generation)
	require.NoError(t, PutAdminSnapshot(fresh))
	_, ok, err = GetAdminSnapshot(4)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSuperAdminSnapshotHoldsEverything(t *testing.T) {
	useMemoryStore(t)

	admin, err := models.NewAdmin("root", "changeme123", permission.RoleSuperAdmin, nil)
	require.NoError(t, err)
	admin.ID = 1
	require.NoError(t, PutAdminSnapshot(SnapshotOf(admin)))

	snap, ok, err := GetAdminSnapshot(1)
	require.NoError(t, err)
	require.True(t, ok)
	for _, tok := range permission.All {
		assert.True(t, snap.PermissionSet().HasPermission(tok), tok)
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	v, err := m.Get("k")
	require.NoError(t, err)
	assert.Nil(t, v)
}
