package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Configuration carries everything both binaries need: credentials for the
// two systems, the proxy allow-list and the supporting file/store paths.
type Configuration struct {
	GlpiURL       string
	GlpiAppToken  string
	GlpiUserToken string

	ZabbixURL      string
	ZabbixUser     string
	ZabbixPassword string

	// ProxyList is the allow-list of GLPI network names. Equipment outside
	// these networks is excluded from the source snapshot.
	ProxyList []string

	MarkerFile string
	LogLevel   string

	// DatabaseURL enables the optional run-history store when set.
	DatabaseURL string
	ReportAddr  string
}

// LoadEnvConfig reads configuration from an env file.
func LoadEnvConfig(configName string) (Configuration, error) {
	if err := godotenv.Load(configName); err != nil {
		return Configuration{}, fmt.Errorf("loading env file %s: %w", configName, err)
	}

	cfg := Configuration{
		GlpiURL:        os.Getenv("GLPI_URL"),
		GlpiAppToken:   os.Getenv("GLPI_APP_TOKEN"),
		GlpiUserToken:  os.Getenv("GLPI_USER_TOKEN"),
		ZabbixURL:      os.Getenv("ZABBIX_URL"),
		ZabbixUser:     os.Getenv("ZABBIX_USER"),
		ZabbixPassword: os.Getenv("ZABBIX_PASSWORD"),
		MarkerFile:     os.Getenv("MARKER_FILE"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ReportAddr:     os.Getenv("REPORT_ADDR"),
	}

	for _, name := range strings.Split(os.Getenv("PROXY_LIST"), ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			cfg.ProxyList = append(cfg.ProxyList, name)
		}
	}

	if cfg.MarkerFile == "" {
		cfg.MarkerFile = "last_import"
	}
	if cfg.ReportAddr == "" {
		cfg.ReportAddr = ":8080"
	}

	return cfg, cfg.validate()
}

func (c Configuration) validate() error {
	switch {
	case c.GlpiURL == "":
		return fmt.Errorf("GLPI_URL is required")
	case c.GlpiAppToken == "":
		return fmt.Errorf("GLPI_APP_TOKEN is required")
	case c.GlpiUserToken == "":
		return fmt.Errorf("GLPI_USER_TOKEN is required")
	case c.ZabbixURL == "":
		return fmt.Errorf("ZABBIX_URL is required")
	case c.ZabbixUser == "":
		return fmt.Errorf("ZABBIX_USER is required")
	case c.ZabbixPassword == "":
		return fmt.Errorf("ZABBIX_PASSWORD is required")
	case len(c.ProxyList) == 0:
		return fmt.Errorf("PROXY_LIST must name at least one proxy")
	}
	return nil
}
