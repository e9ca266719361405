package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

// SnapshotTTL bounds how stale a cached admin may be if an invalidation is ever missed.
const SnapshotTTL = 60 * time.Second

const (
	snapshotPrefix   = "session:admin:"
	generationPrefix = "session:admin-gen:"
)

// AdminSnapshot is the cached subset of an admin row the auth middleware needs.
type AdminSnapshot struct {
	ID          uint               `json:"id"`
	Username    string             `json:"username"`
	Role        permission.Role    `json:"role"`
	Permissions []permission.Token `json:"permissions"`
	IsActive    bool               `json:"is_active"`
	// Generation is the invalidation stamp read before the admin row was loaded.
	Generation string `json:"gen,omitempty"`
}

// SnapshotOf captures an admin row.
func SnapshotOf(a *models.Admin) AdminSnapshot {
	set := a.PermissionSet()
	var tokens []permission.Token
	if !set.IsSuperAdmin() {
		tokens = set.Tokens()
	}
	return AdminSnapshot{
		ID:          a.ID,
		Username:    a.Username,
		Role:        permission.Role(a.Role),
		Permissions: tokens,
		IsActive:    a.IsActive,
	}
}

// PermissionSet resolves the snapshot's effective permissions.
func (s AdminSnapshot) PermissionSet() permission.Set {
	return permission.NewSet(s.Role, s.Permissions)
}

func snapshotKey(id uint) string {
	return fmt.Sprintf("%s%d", snapshotPrefix, id)
}

func generationKey(id uint) string {
	return fmt.Sprintf("%s%d", generationPrefix, id)
}

// AdminGeneration returns the current invalidation stamp of an admin, "" if it was never invalidated.
// Read it before loading the admin row and store it in the snapshot.
func AdminGeneration(id uint) (string, error) {
	raw, err := GetStore().Get(generationKey(id))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetAdminSnapshot returns the cached snapshot, or ok=false on a miss. A snapshot taken
// before the latest InvalidateAdmin counts as a miss.
func GetAdminSnapshot(id uint) (AdminSnapshot, bool, error) {
	raw, err := GetStore().Get(snapshotKey(id))
	if err != nil || len(raw) == 0 {
		return AdminSnapshot{}, false, err
	}
	var snap AdminSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return AdminSnapshot{}, false, err
	}
	gen, err := AdminGeneration(id)
	if err != nil {
		return AdminSnapshot{}, false, err
	}
	if snap.Generation != gen {
		return AdminSnapshot{}, false, nil
	}
	return snap, true, nil
}

// PutAdminSnapshot caches a snapshot for SnapshotTTL.
func PutAdminSnapshot(snap AdminSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return GetStore().Set(snapshotKey(snap.ID), raw, SnapshotTTL)
}

// InvalidateAdmin starts a new generation and drops the cached snapshot, so a snapshot
// written back by a request that loaded the row earlier is ignored. Every admin mutation
// calls it before returning.
func InvalidateAdmin(id uint) error {
	if err := GetStore().Set(generationKey(id), []byte(uuid.NewString()), 0); err != nil {
		return err
	}
	return GetStore().Delete(snapshotKey(id))
}
