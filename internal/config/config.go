// Package config provides configuration structures and loading for straycheck.
package config

import (
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// Source types
const (
	SourceFeatureService = "featureservice"
	SourceSQL            = "sql"
)

// Notifier types
const (
	NotifierCommand = "command"
	NotifierSMTP    = "smtp"
	NotifierLog     = "log"
)

// Default notification subjects.
const (
	DefaultFoundSubject = "Alert: Missing Parent Records Detected"
	DefaultClearSubject = "Notification: All Bird Nest Child Records Have Corresponding Parent Records"
)

// Config represents the complete application configuration.
type Config struct {
	Source   SourceConfig           `yaml:"source" mapstructure:"source"`
	Checks   map[string]CheckConfig `yaml:"checks" mapstructure:"checks"`
	Notifier NotifierConfig         `yaml:"notifier" mapstructure:"notifier"`
	Logging  LoggingConfig          `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig selects and configures the remote record store.
type SourceConfig struct {
	Type           string               `yaml:"type" mapstructure:"type"` // featureservice or sql
	TimeoutSeconds int                  `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	FeatureService FeatureServiceConfig `yaml:"feature_service" mapstructure:"feature_service"`
	Database       DatabaseConfig       `yaml:"database" mapstructure:"database"`
}

// Timeout returns the per-read timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// FeatureServiceConfig holds ArcGIS REST settings shared by all layers.
type FeatureServiceConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// DatabaseConfig represents a relational database holding the layers as tables.
type DatabaseConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // mysql, pgx, sqlite
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	Path               string `yaml:"path" mapstructure:"path"` // sqlite / GeoPackage file
	TLS                string `yaml:"tls" mapstructure:"tls"`   // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// CheckConfig describes one parent/child reconciliation.
type CheckConfig struct {
	NormalizeIDs bool               `yaml:"normalize_ids" mapstructure:"normalize_ids"`
	Parent       ParentLayerConfig  `yaml:"parent" mapstructure:"parent"`
	Child        ChildLayerConfig   `yaml:"child" mapstructure:"child"`
	Report       ReportConfig       `yaml:"report" mapstructure:"report"`
	Notification NotificationConfig `yaml:"notification" mapstructure:"notification"`
}

// ParentLayerConfig names the parent point layer and its identifier field.
type ParentLayerConfig struct {
	Layer   string `yaml:"layer" mapstructure:"layer"` // feature layer URL or table name
	IDField string `yaml:"id_field" mapstructure:"id_field"`
	Where   string `yaml:"where" mapstructure:"where"`
}

// ChildLayerConfig names the child table and the fields read from it.
type ChildLayerConfig struct {
	Layer         string `yaml:"layer" mapstructure:"layer"`
	ObjectIDField string `yaml:"object_id_field" mapstructure:"object_id_field"`
	ParentField   string `yaml:"parent_field" mapstructure:"parent_field"`
	DateField     string `yaml:"date_field" mapstructure:"date_field"`
	CreatorField  string `yaml:"creator_field" mapstructure:"creator_field"`
	CompanyField  string `yaml:"company_field" mapstructure:"company_field"`
	Where         string `yaml:"where" mapstructure:"where"`
}

// Fields returns the child fields in read order.
func (c ChildLayerConfig) Fields() []string {
	return []string{c.ObjectIDField, c.DateField, c.ParentField, c.CreatorField, c.CompanyField}
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// NotificationConfig holds the two static recipient routes.
type NotificationConfig struct {
	Found RouteConfig `yaml:"found" mapstructure:"found"`
	Clear RouteConfig `yaml:"clear" mapstructure:"clear"`
}

// RouteConfig is a recipient list with its subject line.
type RouteConfig struct {
	To      []string `yaml:"to" mapstructure:"to"`
	CC      []string `yaml:"cc" mapstructure:"cc"`
	Subject string   `yaml:"subject" mapstructure:"subject"`
}

// NotifierConfig selects the delivery mechanism.
type NotifierConfig struct {
	Type           string        `yaml:"type" mapstructure:"type"` // command, smtp, log
	TimeoutSeconds int           `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Command        CommandConfig `yaml:"command" mapstructure:"command"`
	SMTP           SMTPConfig    `yaml:"smtp" mapstructure:"smtp"`
}

// Timeout returns the delivery timeout.
func (n NotifierConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// CommandConfig configures an external mail helper. The helper is invoked as
// path args... <to> <cc> <subject> <html-file>.
type CommandConfig struct {
	Path string   `yaml:"path" mapstructure:"path"`
	Args []string `yaml:"args" mapstructure:"args"`
}

// SMTPConfig configures direct SMTP delivery.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:           SourceFeatureService,
			TimeoutSeconds: 60,
			FeatureService: FeatureServiceConfig{
				PageSize: 2000,
			},
			Database: DatabaseConfig{
				Driver:             "mysql",
				Port:               3306,
				TLS:                "preferred",
				MaxConnections:     4,
				MaxIdleConnections: 2,
			},
		},
		Notifier: NotifierConfig{
			Type:           NotifierCommand,
			TimeoutSeconds: 120,
			SMTP: SMTPConfig{
				Port: 25,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// WithDefaults returns a copy of the check with unset field names and
// subjects filled in from the conventional bird nest schema.
func (cc CheckConfig) WithDefaults() CheckConfig {
	result := cc
	if result.Parent.IDField == "" {
		result.Parent.IDField = "GlobalID"
	}
	if result.Child.ObjectIDField == "" {
		result.Child.ObjectIDField = "OBJECTID"
	}
	if result.Child.ParentField == "" {
		result.Child.ParentField = "RelativeGlobalID"
	}
	if result.Child.DateField == "" {
		result.Child.DateField = "OBS_DATE"
	}
	if result.Child.CreatorField == "" {
		result.Child.CreatorField = "BIO_NM"
	}
	if result.Child.CompanyField == "" {
		result.Child.CompanyField = "BIO_CO"
	}
	if result.Report.Timezone == "" {
		result.Report.Timezone = "America/Los_Angeles"
	}
	if result.Notification.Found.Subject == "" {
		result.Notification.Found.Subject = DefaultFoundSubject
	}
	if result.Notification.Clear.Subject == "" {
		result.Notification.Clear.Subject = DefaultClearSubject
	}
	return result
}

// Location loads the report time zone.
func (r ReportConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}
