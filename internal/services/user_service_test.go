package services

import (
	"fmt"
	"testing"

	"firelater/internal/models"
	"firelater/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRole{},
	))
	return db
}

func TestUserCreateAndPassword(t *testing.T) {
	svc := NewUserServiceWithDB(newAuthTestDB(t))

	user, err := svc.Create(CreateUserRequest{
		Username: "zhangsan",
		Email:    "zhangsan@example.com",
		Password: "s3cret-pass",
		Name:     "张三",
	}, 1)
	require.NoError(t, err)
	assert.True(t, user.CheckPassword("s3cret-pass"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.Equal(t, models.UserStatusActive, user.Status)

	// 用户名与邮箱唯一
	_, err = svc.Create(CreateUserRequest{
		Username: "zhangsan",
		Email:    "other@example.com",
		Password: "s3cret-pass",
		Name:     "张三2",
	}, 1)
	require.Error(t, err)

	_, err = svc.Create(CreateUserRequest{
		Username: "lisi",
		Email:    "zhangsan@example.com",
		Password: "s3cret-pass",
		Name:     "李四",
	}, 1)
	require.Error(t, err)
}

func TestUserPermissionsViaRoles(t *testing.T) {
	db := newAuthTestDB(t)
	userService := NewUserServiceWithDB(db)
	roleService := NewRoleServiceWithDB(db)

	permission := models.Permission{
		Code: "ticket:create", Name: "创建工单",
		Module: models.ModuleTicket, Action: models.ActionCreate,
	}
	require.NoError(t, db.Create(&permission).Error)

	role, err := roleService.Create(CreateRoleRequest{Code: "helpdesk", Name: "服务台"})
	require.NoError(t, err)
	require.NoError(t, roleService.AssignPermissions(role.ID, []uint{permission.ID}))

	user, err := userService.Create(CreateUserRequest{
		Username: "wangwu",
		Email:    "wangwu@example.com",
		Password: "s3cret-pass",
		Name:     "王五",
	}, 1)
	require.NoError(t, err)

	// 未授权时无权限
	allowed, err := userService.HasPermission(user.ID, "ticket:create")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, userService.AssignRoles(user.ID, []uint{role.ID}, 1))

	allowed, err = userService.HasPermission(user.ID, "ticket:create")
	require.NoError(t, err)
	assert.True(t, allowed)

	codes, err := userService.GetUserPermissions(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ticket:create"}, codes)

	// 未授予的权限仍然拒绝
	allowed, err = userService.HasPermission(user.ID, "ticket:delete")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAdminBypassesPermissionCheck(t *testing.T) {
	svc := NewUserServiceWithDB(newAuthTestDB(t))

	admin, err := svc.Create(CreateUserRequest{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "s3cret-pass",
		Name:     "管理员",
		IsAdmin:  true,
	}, 1)
	require.NoError(t, err)

	allowed, err := svc.HasPermission(admin.ID, "anything:at_all")
	require.NoError(t, err)
	assert.True(t, allowed)

	// 最后一个管理员不可删除
	require.Error(t, svc.Delete(admin.ID))
}

func TestUserListSearch(t *testing.T) {
	svc := NewUserServiceWithDB(newAuthTestDB(t))

	for _, name := range []string{"alice", "bob"} {
		_, err := svc.Create(CreateUserRequest{
			Username: name,
			Email:    name + "@example.com",
			Password: "s3cret-pass",
			Name:     name,
		}, 1)
		require.NoError(t, err)
	}

	params := &pagination.PageParams{Page: 1, PageSize: 10}
	users, total, err := svc.List(params, "ali")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}
