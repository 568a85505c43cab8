package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/models"
)

func TestBingoSessionRepository_SaveVersioned_Create(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewBingoSessionRepository(db)
	ctx := context.Background()

	row := CreateTestBingoSession("s1", "preparing")
	err := repo.SaveVersioned(ctx, row, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.Version)

	found, err := repo.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "preparing", found.Status)
	assert.Equal(t, int64(1), found.Version)

	// 重复创建视为版本冲突
	err = repo.SaveVersioned(ctx, CreateTestBingoSession("s1", "preparing"), 0, nil)
	assert.True(t, errors.Is(err, errors.ErrVersionConflict))
}

func TestBingoSessionRepository_SaveVersioned_CompareAndSwap(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewBingoSessionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("s1", "preparing"), 0, nil))

	update := CreateTestBingoSession("s1", "ready")
	require.NoError(t, repo.SaveVersioned(ctx, update, 1, nil))
	assert.Equal(t, int64(2), update.Version)

	// 旧版本写入失败且不改变数据
	stale := CreateTestBingoSession("s1", "active")
	err := repo.SaveVersioned(ctx, stale, 1, nil)
	assert.True(t, errors.Is(err, errors.ErrVersionConflict))

	found, err := repo.FindBySessionID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ready", found.Status)
	assert.Equal(t, int64(2), found.Version)
}

func TestBingoSessionRepository_Participants(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewBingoSessionRepository(db)
	ctx := context.Background()

	participants := []models.BingoParticipant{
		{SessionID: "s1", PlayerID: "alice"},
		{SessionID: "s1", PlayerID: "bob"},
	}
	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("s1", "ready"), 0, participants))

	// 结束后更新中奖情况，不产生重复行
	done := CreateTestBingoSession("s1", "completed")
	participants[0].Won = true
	participants[0].CompletedAt = done.CompletedAt
	participants[1].CompletedAt = done.CompletedAt
	require.NoError(t, repo.SaveVersioned(ctx, done, 1, participants))

	rows, err := repo.FindParticipants(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	won := map[string]bool{}
	for _, r := range rows {
		won[r.PlayerID] = r.Won
	}
	assert.Equal(t, map[string]bool{"alice": true, "bob": false}, won)
}

func TestBingoSessionRepository_FindByStatus(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewBingoSessionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("a", "active"), 0, nil))
	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("b", "paused"), 0, nil))
	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("c", "completed"), 0, nil))

	rows, err := repo.FindByStatus(ctx, "active", "paused")
	require.NoError(t, err)

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.SessionID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestBingoSessionRepository_FindHistoryByPlayer(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewBingoSessionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("done", "completed"), 0, []models.BingoParticipant{
		{SessionID: "done", PlayerID: "alice", Won: true},
		{SessionID: "done", PlayerID: "bob"},
	}))
	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("live", "active"), 0, []models.BingoParticipant{
		{SessionID: "live", PlayerID: "alice"},
	}))

	p := NewPagination(1, 10)
	history, err := repo.FindHistoryByPlayer(ctx, "alice", p)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "done", history[0].SessionID)
	assert.Equal(t, "grid", history[0].Variant)
	assert.True(t, history[0].Won)
	assert.Equal(t, int64(1), p.Total)
	assert.False(t, p.HasMore())

	history, err = repo.FindHistoryByPlayer(ctx, "bob", NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Won)

	history, err = repo.FindHistoryByPlayer(ctx, "carol", NewPagination(1, 10))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBingoSessionRepository_DeleteCompletedBefore(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewBingoSessionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("old", "completed"), 0, []models.BingoParticipant{
		{SessionID: "old", PlayerID: "alice"},
	}))
	require.NoError(t, repo.SaveVersioned(ctx, CreateTestBingoSession("live", "active"), 0, nil))

	deleted, err := repo.DeleteCompletedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindBySessionID(ctx, "old")
	assert.Error(t, err)
	rows, err := repo.FindParticipants(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = repo.FindBySessionID(ctx, "live")
	assert.NoError(t, err)
}

func TestPagination(t *testing.T) {
	p := NewPagination(0, 500)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 0)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 40, p.Offset())

	p.Total = 61
	assert.True(t, p.HasMore())
	p.Total = 60
	assert.False(t, p.HasMore())
}
