package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/byebyebruce/rollbackserver/logic/sim"
	"github.com/spf13/viper"
)

// ServerConfig 网络
type ServerConfig struct {
	Reliable    string        `mapstructure:"reliable"`   // kcp 监听地址
	Unreliable  string        `mapstructure:"unreliable"` // udp 监听地址
	Advertise   string        `mapstructure:"advertise"`  // 告诉客户端的 udp 主机, 空的话取本机出口IP
	Web         string        `mapstructure:"web"`
	Rooms       []uint64      `mapstructure:"rooms"` // 启动时创建的房间
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// SimConfig 模拟节奏
type SimConfig struct {
	TickRate             int           `mapstructure:"tickRate"`
	IdlePoll             time.Duration `mapstructure:"idlePoll"`
	MaxRollback          int           `mapstructure:"maxRollback"`
	MaxTransmissionDelay time.Duration `mapstructure:"maxTransmissionDelay"`
	RosterInterval       time.Duration `mapstructure:"rosterInterval"`
	ClientTimeout        time.Duration `mapstructure:"clientTimeout"`
	InputRate            float64       `mapstructure:"inputRate"` // 每个会话每秒最多多少个数据报
	InputBurst           int           `mapstructure:"inputBurst"`
}

// DirectoryConfig 玩家档案服务
type DirectoryConfig struct {
	BaseURL      string        `mapstructure:"baseURL"` // 空的话用内存实现
	Timeout      time.Duration `mapstructure:"timeout"`
	SaveInterval time.Duration `mapstructure:"saveInterval"`
}

// LogConfig 日志
type LogConfig struct {
	Level string `mapstructure:"level"`
	Color bool   `mapstructure:"color"`
}

// Config 全部配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Sim       SimConfig       `mapstructure:"sim"`
	Physics   sim.Params      `mapstructure:"physics"`
	Runways   []sim.Runway    `mapstructure:"runways"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.reliable", ":10086")
	v.SetDefault("server.unreliable", ":10087")
	v.SetDefault("server.advertise", "")
	v.SetDefault("server.web", ":8080")
	v.SetDefault("server.rooms", []uint64{1})
	v.SetDefault("server.readTimeout", 10*time.Second)

	v.SetDefault("sim.tickRate", sim.DefaultTicks)
	v.SetDefault("sim.idlePoll", 3*time.Second)
	v.SetDefault("sim.maxRollback", 8)
	v.SetDefault("sim.maxTransmissionDelay", 100*time.Millisecond)
	v.SetDefault("sim.rosterInterval", time.Second)
	v.SetDefault("sim.clientTimeout", 10*time.Second)
	v.SetDefault("sim.inputRate", 120.0)
	v.SetDefault("sim.inputBurst", 40)

	v.SetDefault("directory.baseURL", "")
	v.SetDefault("directory.timeout", 3*time.Second)
	v.SetDefault("directory.saveInterval", 30*time.Second)

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.color", true)
}

// Load 读配置, path 为空时只用默认值和环境变量(ROLLBACK_ 前缀)
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ROLLBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{
		Physics: sim.DefaultParams(),
		Runways: []sim.Runway{{HalfWidth: 20, HalfLength: 200}},
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	if c.Sim.TickRate <= 0 || c.Sim.TickRate > 120 {
		return fmt.Errorf("config: sim.tickRate %d out of range (1-120)", c.Sim.TickRate)
	}
	// 回滚窗口要小于半个序号空间, 否则前后判断会出错
	if c.Sim.MaxRollback < 1 || c.Sim.MaxRollback > 64 {
		return fmt.Errorf("config: sim.maxRollback %d out of range (1-64)", c.Sim.MaxRollback)
	}
	if c.Sim.IdlePoll <= 0 {
		return errors.New("config: sim.idlePoll must be positive")
	}
	if c.Physics.WorldBound <= 0 || c.Physics.MaxAltitude <= 0 || c.Physics.MaxFuel <= 0 {
		return errors.New("config: physics bounds must be positive")
	}
	if c.Server.Reliable == "" || c.Server.Unreliable == "" {
		return errors.New("config: server addresses required")
	}
	return nil
}

// TickInterval tick 间隔
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.TickRate)
}

// Params 合成模拟参数
func (c *Config) Params() sim.Params {
	p := c.Physics
	p.TickInterval = c.TickInterval()
	p.MaxRollback = uint8(c.Sim.MaxRollback)

	delay := (c.Sim.MaxTransmissionDelay + p.TickInterval - 1) / p.TickInterval
	if delay > 255 {
		delay = 255
	}
	p.PublishDelay = uint8(delay)
	return p
}
