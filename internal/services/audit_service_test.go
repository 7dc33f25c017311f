package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuslink/campuslink-server/internal/database/testutil"
)

func TestAuditLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "auth.login"}))

	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Email:     "A@Campus.EDU",
		Action:    "registration.code_requested",
		Result:    "success",
		IPAddress: "10.0.0.1",
		Metadata:  map[string]any{"source": "web"},
	}))
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Email:  "b@campus.edu",
		Action: "auth.login",
		Result: "invalid_credentials",
	}))

	logs, total, err := svc.List(context.Background(), AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)

	logs, total, err = svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Email: "a@campus.edu"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "registration.code_requested", logs[0].Action)
	require.Contains(t, logs[0].Metadata, "web")

	logs, total, err = svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Result: "invalid_credentials"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "b@campus.edu", logs[0].Email)
}

func TestAuditCleanupValidatesRetention(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)

	removed, err := svc.CleanupOlderThan(context.Background(), 30)
	require.NoError(t, err)
	require.Zero(t, removed)
}
