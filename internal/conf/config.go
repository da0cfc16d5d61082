package conf

import (
	"os"
	"strings"
	"time"

	"github.com/iceymoss/go-agora/pkg/config"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Database config.MysqlConfig `mapstructure:"database"`
	Redis    config.RedisConfig `mapstructure:"redis"`
	Log      LogConfig          `mapstructure:"log"`
	Timezone TimezoneConfig     `mapstructure:"timezone"`
	Auth     AuthConfig         `mapstructure:"auth"`
	Visitor  VisitorConfig      `mapstructure:"visitor"`
	Keywords KeywordsConfig     `mapstructure:"keywords"`
	Topics   TopicsConfig       `mapstructure:"topics"`
	Chat     ChatConfig         `mapstructure:"chat"`
	Comments CommentsConfig     `mapstructure:"comments"`
	Content  ContentConfig      `mapstructure:"content"`
	Jobs     []JobConfig        `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// RequestTimeout 每个请求的存储访问上限
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	Mode            string        `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TimezoneConfig struct {
	Name           string `mapstructure:"name"`
	FallbackOffset int    `mapstructure:"fallbackOffset"`
}

type AuthConfig struct {
	UserHeader string `mapstructure:"userHeader"`
	RoleHeader string `mapstructure:"roleHeader"`
}

type VisitorConfig struct {
	Enable         bool          `mapstructure:"enable"`
	IgnorePrefixes []string      `mapstructure:"ignorePrefixes"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type KeywordsConfig struct {
	Limit      int               `mapstructure:"limit"`
	SampleSize int               `mapstructure:"sampleSize"`
	Favicons   map[string]string `mapstructure:"favicons"`
}

type TopicsConfig struct {
	ViewCooldown time.Duration `mapstructure:"viewCooldown"`
}

type ChatConfig struct {
	MaxContentLength int    `mapstructure:"maxContentLength"`
	ReportThreshold  int    `mapstructure:"reportThreshold"`
	PageSize         int    `mapstructure:"pageSize"`
	ChannelPrefix    string `mapstructure:"channelPrefix"`
}

type CommentsConfig struct {
	MaxContentLength int `mapstructure:"maxContentLength"`
	ReportThreshold  int `mapstructure:"reportThreshold"`
}

// ContentConfig 敏感词库
type ContentConfig struct {
	DictFile string   `mapstructure:"dictFile"`
	Words    []string `mapstructure:"words"`
}

type JobConfig struct {
	Name string `mapstructure:"name"`
	// Handler 任务实现名，为空时与 Name 相同
	Handler string                 `mapstructure:"handler"`
	Cron    string                 `mapstructure:"cron"`
	Enable  bool                   `mapstructure:"enable"`
	Params  map[string]interface{} `mapstructure:"params"`
}

// keyDelim favicons 的键是带点号的域名，不能使用 viper 默认的 "." 作为层级分隔符
const keyDelim = "::"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server::port", ":8080")
	v.SetDefault("server::requestTimeout", 5*time.Second)
	v.SetDefault("server::shutdownTimeout", 10*time.Second)
	v.SetDefault("server::mode", "release")
	v.SetDefault("database::driver", "mysql")
	v.SetDefault("log::level", "info")
	v.SetDefault("timezone::name", "Asia/Seoul")
	v.SetDefault("timezone::fallbackOffset", 9)
	v.SetDefault("visitor::enable", true)
	v.SetDefault("visitor::timeout", 3*time.Second)
	v.SetDefault("keywords::limit", 5)
	v.SetDefault("keywords::sampleSize", 3)
	v.SetDefault("topics::viewCooldown", 24*time.Hour)
	v.SetDefault("chat::maxContentLength", 1000)
	v.SetDefault("chat::reportThreshold", 5)
	v.SetDefault("chat::pageSize", 50)
	v.SetDefault("comments::maxContentLength", 1000)
	v.SetDefault("comments::reportThreshold", 5)
}

// LoadConfig 加载配置，path 为空时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelim))
	setDefaults(v)
	v.SetEnvPrefix("AGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelim, "_"))
	v.AutomaticEnv() // 自动读取环境变量

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		// 允许环境变量替换 YAML 中的 ${VAR}
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// 显式展开环境变量
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
