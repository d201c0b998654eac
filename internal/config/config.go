package config

import "time"

// Config captures the settings of the meeting-room service.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Logging  LoggingConfig  `koanf:"logging"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Portal   PortalConfig   `koanf:"portal"`
	DialIn   DialInConfig   `koanf:"dial_in"`
	Identity IdentityConfig `koanf:"identity"`
	Jobs     JobsConfig     `koanf:"jobs"`
}

// HTTPConfig configures the operational HTTP server.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
	Stdout     bool   `koanf:"stdout"`
}

// DatabaseConfig selects and tunes the store.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver" validate:"oneof=memory sqlite postgres"`
	DSN             string        `koanf:"dsn" validate:"required_unless=Driver memory"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
}

// RedisConfig configures the job lock backend. An empty address keeps job
// locks inside the process.
type RedisConfig struct {
	Addr       string        `koanf:"addr" validate:"omitempty,hostname_port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db" validate:"gte=0"`
	LockPrefix string        `koanf:"lock_prefix"`
	LockTTL    time.Duration `koanf:"lock_ttl" validate:"gt=0"`
}

// PortalConfig builds join links carried by notifications.
type PortalConfig struct {
	Domain   string `koanf:"domain" validate:"required"`
	JoinPath string `koanf:"join_path"`
}

// DialInConfig holds the telephony details stamped on new rooms.
type DialInConfig struct {
	PhoneNumber string `koanf:"phone_number"`
	SIPLink     string `koanf:"sip_link"`
}

// IdentityConfig lists directory entries used to resolve the default organizer.
type IdentityConfig struct {
	Users []IdentityUser `koanf:"users" validate:"dive"`
}

// IdentityUser maps an e-mail address to a user name.
type IdentityUser struct {
	Email    string `koanf:"email" validate:"required,email"`
	Username string `koanf:"username" validate:"required"`
}

// JobsConfig holds the lifecycle job settings.
type JobsConfig struct {
	TimeZone         string                    `koanf:"time_zone" validate:"required"`
	Deletion         StaticRoomJobConfig       `koanf:"static_room_deletion"`
	Password         PasswordJobConfig         `koanf:"static_room_password"`
	DefaultOrganizer DefaultOrganizerJobConfig `koanf:"static_room_default_organizer"`
	OldMeetings      RetentionJobConfig        `koanf:"old_meetings"`
	OldNotifications RetentionJobConfig        `koanf:"old_notifications"`
}

// JobConfig holds the settings every lifecycle job shares.
type JobConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Cron       string `koanf:"cron" validate:"required"`
	ChunkSize  int    `koanf:"chunk_size" validate:"gt=0"`
	RetryLimit int    `koanf:"retry_limit" validate:"gt=0"`
}

// StaticRoomJobConfig configures a two-threshold static-room state machine.
type StaticRoomJobConfig struct {
	JobConfig  `koanf:",squash"`
	DaysLimit  int `koanf:"days_limit" validate:"gt=0"`
	DaysBefore int `koanf:"days_before" validate:"gt=0,ltfield=DaysLimit"`
}

// PasswordJobConfig adds password generation settings.
type PasswordJobConfig struct {
	StaticRoomJobConfig `koanf:",squash"`
	Length              int    `koanf:"password_length" validate:"gte=4,lte=128"`
	Charset             string `koanf:"password_charset" validate:"required"`
}

// DefaultOrganizerJobConfig configures the default organizer assignment.
type DefaultOrganizerJobConfig struct {
	JobConfig `koanf:",squash"`
	Email     string `koanf:"email" validate:"omitempty,email"`
}

// RetentionJobConfig configures a cleanup job that removes old rows.
type RetentionJobConfig struct {
	JobConfig `koanf:",squash"`
	Days      int `koanf:"days" validate:"gt=0"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	job := func(cron string) JobConfig {
		return JobConfig{Enabled: true, Cron: cron, ChunkSize: 200, RetryLimit: 3}
	}
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Stdout: true},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:meeting-rooms.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
			MaxOpenConns:    15,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			LockPrefix: "meeting-rooms:lock:",
			LockTTL:    30 * time.Minute,
		},
		Portal: PortalConfig{
			Domain:   "http://localhost:3000",
			JoinPath: "/meetings/join/",
		},
		Jobs: JobsConfig{
			TimeZone: "Europe/Berlin",
			Deletion: StaticRoomJobConfig{
				JobConfig:  job("0 15 1 * * *"),
				DaysLimit:  90,
				DaysBefore: 15,
			},
			Password: PasswordJobConfig{
				StaticRoomJobConfig: StaticRoomJobConfig{
					JobConfig:  job("0 0 1 * * *"),
					DaysLimit:  30,
					DaysBefore: 5,
				},
				Length:  8,
				Charset: "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%&*-=+?",
			},
			DefaultOrganizer: DefaultOrganizerJobConfig{
				JobConfig: JobConfig{Enabled: false, Cron: "0 0 */6 * * *", ChunkSize: 200, RetryLimit: 3},
			},
			OldMeetings: RetentionJobConfig{
				JobConfig: job("0 35 1 * * *"),
				Days:      60,
			},
			OldNotifications: RetentionJobConfig{
				JobConfig: job("0 0 1 * * *"),
				Days:      60,
			},
		},
	}
}
