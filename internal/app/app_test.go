package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/retailhub/config"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/testutil"
	"github.com/talkincode/retailhub/pkg/common"
	"github.com/talkincode/retailhub/pkg/metrics"
)

func newTestApp(t *testing.T) *Application {
	a := NewApplication(config.DefaultAppConfig())
	a.OverrideDB(testutil.NewDB(t))
	return a
}

func TestCheckSuperCreatesAdmin(t *testing.T) {
	a := newTestApp(t)
	a.checkSuper()

	var u domain.SysUser
	require.NoError(t, a.DB().Where("username = ?", superUsername).First(&u).Error)
	assert.Equal(t, domain.UserTypeAdmin, u.Type)
	assert.Equal(t, common.ENABLED, u.Status)
	assert.True(t, common.CheckPassword(u.Password, defaultPassword))

	// second call is a no-op
	a.checkSuper()
	assert.EqualValues(t, 1, testutil.Count(t, a.DB(), &domain.SysUser{}))
}

func TestCheckSuperRepairsAdmin(t *testing.T) {
	a := newTestApp(t)
	a.checkSuper()
	require.NoError(t, a.DB().Model(&domain.SysUser{}).
		Where("username = ?", superUsername).
		Updates(map[string]interface{}{"type": domain.UserTypeBuyer, "status": common.DISABLED}).Error)

	a.checkSuper()

	var u domain.SysUser
	require.NoError(t, a.DB().Where("username = ?", superUsername).First(&u).Error)
	assert.Equal(t, domain.UserTypeAdmin, u.Type)
	assert.Equal(t, common.ENABLED, u.Status)
}

func TestSchedClearExpireData(t *testing.T) {
	a := newTestApp(t)
	old := domain.SysOprLog{ID: common.UUIDint64(), OprName: "admin", OptAction: "login", OptTime: time.Now().AddDate(-2, 0, 0)}
	recent := domain.SysOprLog{ID: common.UUIDint64(), OprName: "admin", OptAction: "login", OptTime: time.Now()}
	require.NoError(t, a.DB().Create(&old).Error)
	require.NoError(t, a.DB().Create(&recent).Error)

	assert.EqualValues(t, 1, a.SchedClearExpireData())
	assert.EqualValues(t, 1, testutil.Count(t, a.DB(), &domain.SysOprLog{}))
}

func TestEventBusIsShared(t *testing.T) {
	a := newTestApp(t)
	got := make(chan string, 1)
	require.NoError(t, a.EventBus().Subscribe("ping", func(s string) { got <- s }))
	a.EventBus().Publish("ping", "pong")
	assert.Equal(t, "pong", <-got)
}

func TestMigrateDB(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.MigrateDB(false))
	assert.True(t, a.DB().Migrator().HasIndex(&domain.Order{}, "idx_orders_user_cart"))

	broken := NewApplication(config.DefaultAppConfig())
	assert.Error(t, broken.MigrateDB(false))
}

func TestJobs(t *testing.T) {
	a := newTestApp(t)
	var names []string
	for _, j := range a.Jobs() {
		names = append(names, j.Name)
		assert.Nil(t, j.NextRunAt)
	}
	assert.Equal(t, []string{JobSystemMonitor, JobProcessMonitor, JobClearOprLogs}, names)

	old := domain.SysOprLog{ID: common.UUIDint64(), OprName: "admin", OptAction: "login", OptTime: time.Now().AddDate(-2, 0, 0)}
	require.NoError(t, a.DB().Create(&old).Error)
	require.NoError(t, a.StartJob(JobClearOprLogs))
	assert.Eventually(t, func() bool {
		var n int64
		a.DB().Model(&domain.SysOprLog{}).Count(&n)
		return n == 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.ErrorIs(t, a.StartJob("missing"), ErrJobNotFound)
}

func TestSchedProcessMonitorTask(t *testing.T) {
	require.NoError(t, metrics.InitMetrics(t.TempDir()))
	t.Cleanup(func() { _ = metrics.Close() })

	a := newTestApp(t)
	a.SchedProcessMonitorTask()

	points, err := metrics.Query(MetricProcessMem, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, points)
}
