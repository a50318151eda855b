// 包 store: PostgreSQL 数据访问层，包含地图/区域元数据镜像与访问日志
package store

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return AttachDB(db), nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }
