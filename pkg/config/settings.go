package config

import (
	"fmt"
	"time"
)

// RedisConfig redis 连接配置
type RedisConfig struct {
	Enable   bool   `mapstructure:"enable" json:"enable"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	PassWord string `mapstructure:"password" json:"passWord"`
	DB       int    `mapstructure:"db" json:"db"`
}

// Addr host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MysqlConfig 关系型数据库配置，driver 可选 mysql / postgres / memory
type MysqlConfig struct {
	Driver        string        `mapstructure:"driver" json:"driver"`
	Host          string        `mapstructure:"host" json:"host"`
	Port          int           `mapstructure:"port" json:"port"`
	User          string        `mapstructure:"user" json:"user"`
	Password      string        `mapstructure:"password" json:"password"`
	DbName        string        `mapstructure:"dbname" json:"dbname"`
	LogLevel      string        `mapstructure:"logLevel" json:"logLevel"`
	SlowThreshold time.Duration `mapstructure:"slowThreshold" json:"slowThreshold"`
	MaxOpenConns  int           `mapstructure:"maxOpenConns" json:"maxOpenConns"`
	MaxIdleConns  int           `mapstructure:"maxIdleConns" json:"maxIdleConns"`
	Timezone      string        `mapstructure:"timezone" json:"timezone"`
}

// DSN 按驱动拼接连接串
func (m MysqlConfig) DSN() string {
	switch m.Driver {
	case "postgres":
		tz := m.Timezone
		if tz == "" {
			tz = "UTC"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
			m.Host, m.Port, m.User, m.Password, m.DbName, tz)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			m.User, m.Password, m.Host, m.Port, m.DbName)
	}
}
