package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sudooom.hukum/internal/game/hukum"
)

// EnvPrefix 环境变量前缀，如 HUKUM_REDIS_HOST 覆盖 redis.host
const EnvPrefix = "HUKUM"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Game       GameConfig       `mapstructure:"game"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr Redis 地址
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN PostgreSQL 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

type HTTPConfig struct {
	Addr       string `mapstructure:"addr"`        // 业务 API 监听地址
	HealthAddr string `mapstructure:"health_addr"` // 健康检查监听地址
	Mode       string `mapstructure:"mode"`        // gin 模式: debug / release / test

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type JWTConfig struct {
	SecretKey    string        `mapstructure:"secret_key"`
	AccessExpire time.Duration `mapstructure:"access_expire"`
	Issuer       string        `mapstructure:"issuer"`
}

// GameConfig 牌局与会话相关配置
type GameConfig struct {
	Rotation        string        `mapstructure:"rotation"`         // clockwise / last_trick_winner
	FirstStarter    int           `mapstructure:"first_starter"`    // 0..3，-1 为随机
	TurnTimeout     time.Duration `mapstructure:"turn_timeout"`     // 0 表示不限时
	DisconnectGrace time.Duration `mapstructure:"disconnect_grace"` // 掉线托管等待时长
	EvictTimeout    time.Duration `mapstructure:"evict_timeout"`    // 本地缓存淘汰时长
	EvictInterval   time.Duration `mapstructure:"evict_interval"`
	MaxGames        int           `mapstructure:"max_games"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`     // 牌局锁过期时间
	LockWait        time.Duration `mapstructure:"lock_wait"`    // 获取锁最长等待
	SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"` // 快照在 Redis 中的保留时长
	TimerTick       time.Duration `mapstructure:"timer_tick"`
	TimerWorkers    int           `mapstructure:"timer_workers"`
	ChannelSecret   string        `mapstructure:"channel_secret"` // 座位私有频道密钥，为空时使用 jwt.secret_key
}

type ScoringConfig struct {
	WinPoints         int `mapstructure:"win_points"`
	SweepPoints       int `mapstructure:"sweep_points"`
	CallerSweepPoints int `mapstructure:"caller_sweep_points"`
	TargetScore       int `mapstructure:"target_score"`
}

type SubscriberConfig struct {
	WorkerCount int `mapstructure:"worker_count"`
	BufferSize  int `mapstructure:"buffer_size"`
}

// Load 从指定路径加载配置
// 先读取工作目录下的 .env（可选），环境变量优先于配置文件
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 默认值；同时让 AutomaticEnv 能覆盖配置文件中没有出现的键
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hukum")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.request_timeout", 5*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "hukum")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.health_addr", ":8081")
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.access_expire", 2*time.Hour)
	v.SetDefault("jwt.issuer", "hukum")

	v.SetDefault("game.rotation", string(hukum.RotationClockwise))
	v.SetDefault("game.first_starter", -1)
	v.SetDefault("game.turn_timeout", 0)
	v.SetDefault("game.disconnect_grace", 15*time.Second)
	v.SetDefault("game.evict_timeout", 30*time.Minute)
	v.SetDefault("game.evict_interval", time.Minute)
	v.SetDefault("game.max_games", 10000)
	v.SetDefault("game.lock_ttl", 5*time.Second)
	v.SetDefault("game.lock_wait", 2*time.Second)
	v.SetDefault("game.snapshot_ttl", 24*time.Hour)
	v.SetDefault("game.timer_tick", time.Second)
	v.SetDefault("game.timer_workers", 4)
	v.SetDefault("game.channel_secret", "")

	defaults := hukum.DefaultScoring()
	v.SetDefault("scoring.win_points", defaults.WinPoints)
	v.SetDefault("scoring.sweep_points", defaults.SweepPoints)
	v.SetDefault("scoring.caller_sweep_points", defaults.CallerSweepPoints)
	v.SetDefault("scoring.target_score", defaults.TargetScore)

	v.SetDefault("subscriber.worker_count", 32)
	v.SetDefault("subscriber.buffer_size", 1024)
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch hukum.Rotation(c.Game.Rotation) {
	case hukum.RotationClockwise, hukum.RotationLastTrickWinner:
	default:
		return fmt.Errorf("invalid game.rotation %q", c.Game.Rotation)
	}

	if c.Game.FirstStarter < -1 || c.Game.FirstStarter > 3 {
		return fmt.Errorf("invalid game.first_starter %d", c.Game.FirstStarter)
	}

	if c.Game.TurnTimeout < 0 || c.Game.DisconnectGrace < 0 {
		return fmt.Errorf("game timers must not be negative")
	}

	if err := c.Scoring.ToScoring().Validate(); err != nil {
		return fmt.Errorf("invalid scoring: %w", err)
	}

	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}

	return nil
}

// ToScoring 转换为计分规则
func (c ScoringConfig) ToScoring() hukum.Scoring {
	return hukum.Scoring{
		WinPoints:         c.WinPoints,
		SweepPoints:       c.SweepPoints,
		CallerSweepPoints: c.CallerSweepPoints,
		TargetScore:       c.TargetScore,
	}
}

// ChannelSecret 座位私有频道密钥
func (c *Config) ChannelSecret() []byte {
	if c.Game.ChannelSecret != "" {
		return []byte(c.Game.ChannelSecret)
	}
	return []byte(c.JWT.SecretKey)
}

// EngineConfig 牌局引擎配置
func (c *Config) EngineConfig() hukum.Config {
	cfg := hukum.DefaultConfig()
	cfg.Rotation = hukum.Rotation(c.Game.Rotation)
	cfg.FirstStarter = c.Game.FirstStarter
	cfg.Scoring = c.Scoring.ToScoring()
	return cfg
}
