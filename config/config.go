package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Feature    FeatureConfig    `mapstructure:"feature"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port                   int        `mapstructure:"port"`
	MaxBodyBytes           int64      `mapstructure:"max_body_bytes"`
	ImportMaxBodyBytes     int64      `mapstructure:"import_max_body_bytes"` // 门禁事件批量导入
	HeavyRequestsPerMinute int        `mapstructure:"heavy_requests_per_minute"`
	CORS                   CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
// Driver: postgres（生产）| sqlite（本地运行）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（期间锁、限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 上游身份服务签发的 JWT 校验配置
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout | stderr | 文件路径
}

// AttendanceConfig 考勤计算默认策略（数据库中无策略配置行时使用）
type AttendanceConfig struct {
	NormalStartTime       string        `mapstructure:"normal_start_time"`
	NormalEndTime         string        `mapstructure:"normal_end_time"`
	LateGraceMinutes      int           `mapstructure:"late_grace_minutes"`
	WorkableMinutesPerDay int           `mapstructure:"workable_minutes_per_day"`
	BatchSize             int           `mapstructure:"batch_size"`
	PeriodLockTTL         time.Duration `mapstructure:"period_lock_ttl"`
	Timezone              string        `mapstructure:"timezone"`
}

// FeatureConfig 功能开关配置
type FeatureConfig struct {
	SnapshotRawInput bool `mapstructure:"snapshot_raw_input"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 4<<20)
	v.SetDefault("server.import_max_body_bytes", 32<<20)
	v.SetDefault("server.heavy_requests_per_minute", 10)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.sqlite_path", "attendance.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "attendance")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Seoul")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "identity-service")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("attendance.normal_start_time", "09:00")
	v.SetDefault("attendance.normal_end_time", "18:00")
	v.SetDefault("attendance.late_grace_minutes", 10)
	v.SetDefault("attendance.workable_minutes_per_day", 480)
	v.SetDefault("attendance.batch_size", 1000)
	v.SetDefault("attendance.period_lock_ttl", "10m")
	v.SetDefault("attendance.timezone", "Asia/Seoul")

	v.SetDefault("feature.snapshot_raw_input", true)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres | sqlite")
	}
	return c.Attendance.Validate()
}

// Validate 校验考勤策略默认值
func (a *AttendanceConfig) Validate() error {
	start, err := parseClock(a.NormalStartTime)
	if err != nil {
		return fmt.Errorf("配置校验失败: attendance.normal_start_time %w", err)
	}
	end, err := parseClock(a.NormalEndTime)
	if err != nil {
		return fmt.Errorf("配置校验失败: attendance.normal_end_time %w", err)
	}
	if end <= start {
		return fmt.Errorf("配置校验失败: attendance.normal_end_time 必须晚于 normal_start_time")
	}
	if a.LateGraceMinutes < 0 {
		return fmt.Errorf("配置校验失败: attendance.late_grace_minutes 不能为负数")
	}
	if a.WorkableMinutesPerDay <= 0 {
		return fmt.Errorf("配置校验失败: attendance.workable_minutes_per_day 必须为正数")
	}
	if a.BatchSize <= 0 {
		return fmt.Errorf("配置校验失败: attendance.batch_size 必须为正数")
	}
	return nil
}

// parseClock 解析 HH:MM，返回当天分钟数
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("格式无效 %q（应为 HH:MM）", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
