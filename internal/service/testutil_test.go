package service

import (
	"TradeTalent/internal/model"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/database"
	"TradeTalent/internal/repository"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*StageEvent
}

func (f *fakeNotifier) StageFired(_ context.Context, event *StageEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) Stages() []Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	stages := make([]Stage, 0, len(f.events))
	for _, e := range f.events {
		stages = append(stages, e.Stage)
	}
	return stages
}

type testEnv struct {
	db         *gorm.DB
	clock      *fakeClock
	notifier   *fakeNotifier
	engagement *engagementServiceImpl
	funnel     *funnelServiceImpl
	reEngage   ReEngagementService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "engagement.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// sqlite 只允许一个写连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{now: baseTime}
	notifier := &fakeNotifier{}

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepo(db)
	scoreRepo := repository.NewEngagementScoreRepo(db)
	historyRepo := repository.NewEngagementHistoryRepo(db)
	funnelRepo := repository.NewFunnelRepo(db)
	suggestionRepo := repository.NewSuggestionRepo(db)
	digestRepo := repository.NewDigestRepo(db)
	listingRepo := repository.NewListingRepo(db)

	funnel := newFunnelService(FunnelDeps{
		Tx:          tx,
		Scores:      scoreRepo,
		Funnel:      funnelRepo,
		History:     historyRepo,
		Suggestions: suggestionRepo,
		Digests:     digestRepo,
		Listings:    listingRepo,
		Users:       userRepo,
		Notifier:    notifier,
	})
	funnel.now = clock.Now
	t.Cleanup(funnel.Shutdown)

	engagement := NewEngagementService(tx, scoreRepo, historyRepo, funnelRepo, userRepo, funnel).(*engagementServiceImpl)
	engagement.now = clock.Now

	return &testEnv{
		db:         db,
		clock:      clock,
		notifier:   notifier,
		engagement: engagement,
		funnel:     funnel,
		reEngage:   NewReEngagementService(funnelRepo, suggestionRepo, digestRepo, listingRepo),
	}
}

func (e *testEnv) seedUser(t *testing.T, id uint64, skills ...string) *model.User {
	t.Helper()
	user := &model.User{
		ID:        id,
		Username:  fmt.Sprintf("user%d", id),
		Email:     fmt.Sprintf("user%d@example.com", id),
		AvatarURL: consts.DefaultAvatarURL,
		Status:    consts.UserStatusActive,
	}
	for _, c := range skills {
		user.Skills = append(user.Skills, model.UserSkill{Category: c})
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) seedScore(t *testing.T, userID uint64, score int, lastLogin time.Time) {
	t.Helper()
	row := &model.EngagementScore{
		UserID:    userID,
		Score:     score,
		LastLogin: lastLogin,
		CreatedAt: lastLogin,
		UpdatedAt: lastLogin,
	}
	require.NoError(t, e.db.Create(row).Error)
}

func (e *testEnv) seedListing(t *testing.T, owner uint64, category string, rating float64, reviews int, createdAt time.Time) *model.ServiceListing {
	t.Helper()
	listing := &model.ServiceListing{
		UserID:       owner,
		Title:        fmt.Sprintf("%s by %d", category, owner),
		Category:     category,
		Status:       consts.ListingStatusActive,
		Rating:       rating,
		ReviewsCount: reviews,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, e.db.Create(listing).Error)
	return listing
}

func (e *testEnv) seedStage(t *testing.T, userID uint64, stage Stage, triggeredAt time.Time) *model.FunnelStage {
	t.Helper()
	record := &model.FunnelStage{
		UserID:      userID,
		Stage:       string(stage),
		TriggeredAt: triggeredAt,
		CreatedAt:   triggeredAt,
	}
	require.NoError(t, e.db.Create(record).Error)
	return record
}

func (e *testEnv) score(t *testing.T, userID uint64) *model.EngagementScore {
	t.Helper()
	var row model.EngagementScore
	require.NoError(t, e.db.Where("user_id = ?", userID).First(&row).Error)
	return &row
}

func (e *testEnv) stages(t *testing.T, userID uint64) []*model.FunnelStage {
	t.Helper()
	list := make([]*model.FunnelStage, 0)
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&list).Error)
	return list
}

func (e *testEnv) history(t *testing.T, userID uint64) []*model.EngagementHistory {
	t.Helper()
	list := make([]*model.EngagementHistory, 0)
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&list).Error)
	return list
}

func (e *testEnv) count(t *testing.T, m any, userID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (e *testEnv) accountStatus(t *testing.T, userID uint64) string {
	t.Helper()
	var user model.User
	require.NoError(t, e.db.First(&user, userID).Error)
	return user.Status
}
