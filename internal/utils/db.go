// 包 utils：从环境变量组装 PostgreSQL / Redis 连接参数
package utils

import (
	"net"
	"net/url"
	"os"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// 文档注释：PostgreSQL 连接串
// 背景：PG_DSN 存在时原样使用；否则由 PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 组装。
// 约束：用户名与密码经 URL 转义，含 @ 或 : 的口令不会破坏连接串。
func PostgresDSN() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(env("PG_HOST", "localhost"), env("PG_PORT", "5432")),
		Path:     "/" + env("PG_DB", "sectorwatch"),
		RawQuery: "sslmode=" + url.QueryEscape(env("PG_SSLMODE", "disable")),
	}
	user := env("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}
