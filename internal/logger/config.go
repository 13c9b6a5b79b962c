// internal/logger/config.go
package logger

type Config struct {
	LogFile     string `mapstructure:"file"`        // empty disables the file sink
	MaxSize     int    `mapstructure:"max_size"`    // megabytes
	MaxAge      int    `mapstructure:"max_age"`     // days
	MaxBackups  int    `mapstructure:"max_backups"` // rotated files kept
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogFile:    "orderdesk.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
