package repository

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// IsLockConflict 行锁等待超时或死锁，整个事务可以直接重放
func IsLockConflict(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}
	return errors.Is(err, driver.ErrBadConn)
}
