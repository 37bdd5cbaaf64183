package config

import "time"

// Config 配置主体
type Config struct {
	Server               ServerConfig        `mapstructure:"server"`
	Security             SecurityConfig      `mapstructure:"security"`
	DB                   DBConfig            `mapstructure:"database"`
	Redis                RedisConfig         `mapstructure:"redis"`
	Mongo                MongoConfig         `mapstructure:"mongo"`
	Logstash             LogstashConfig      `mapstructure:"logstash"`
	Log                  LogConfig           `mapstructure:"log"`
	Mail                 MailConfig          `mapstructure:"mail"`
	Kafka                KafkaConfig         `mapstructure:"kafka"`
	KafkaActionConsumer  KafkaActionConsumer `mapstructure:"kafka_action_consumer"`
	KafkaListingConsumer KafkaListConsumer   `mapstructure:"kafka_listing_consumer"`
	Engagement           EngagementConfig    `mapstructure:"engagement"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// SecurityConfig JWT 由账号服务签发，这里只做校验
type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
	JWTTTL    int    `mapstructure:"jwt_ttl_hours"`
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// LogstashConfig 远程日志
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// LogConfig 本地滚动日志，File 为空时不落盘
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// MailConfig 邮件服务
type MailConfig struct {
	Enable  bool   `mapstructure:"enable"`
	URL     string `mapstructure:"url"`
	ApiKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
	Timeout int    `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enable   bool           `mapstructure:"enable"`
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int    `mapstructure:"session_timeout"`
	HeartbeatInterval int    `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int    `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int    `mapstructure:"max_processing_time"`
	InitialOffset     string `mapstructure:"initial_offset"`
}

// KafkaActionConsumer 行为事件
type KafkaActionConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// KafkaListConsumer services 表的 canal 变更
type KafkaListConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// EngagementConfig 活跃度引擎调度配置
type EngagementConfig struct {
	Timezone     string `mapstructure:"timezone"`
	DecayCron    string `mapstructure:"decay_cron"`
	SweepCron    string `mapstructure:"sweep_cron"`
	DecayWorkers int    `mapstructure:"decay_workers"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// Location 解析调度时区，非法值回落到本地时区
func (c EngagementConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
