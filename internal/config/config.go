package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host       string     `koanf:"host"`
	Database   Database   `koanf:"db"`
	Planner    Planner    `koanf:"planner"`
	Engagement Engagement `koanf:"engagement"`
	Risk       Risk       `koanf:"risk"`
	Dashboard  Dashboard  `koanf:"dashboard"`
	Scheduler  Scheduler  `koanf:"scheduler"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Planner struct {
	// AnchorWeekday is the first day of every week bucket, e.g. "monday".
	AnchorWeekday string `koanf:"anchorweekday"`
}

type Engagement struct {
	// Rollover is the policy applied to retainers that do not set one explicitly.
	Rollover string `koanf:"rollover"`
}

type Risk struct {
	Rule               string `koanf:"rule"`
	ApprovalMaxAgeDays int    `koanf:"approvalmaxagedays"`
	WarningThreshold   int    `koanf:"warningthreshold"`
}

type Dashboard struct {
	UpcomingLimit int `koanf:"upcominglimit"`
}

type Scheduler struct {
	Enabled bool   `koanf:"enabled"`
	Cron    string `koanf:"cron"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "agencydesk",
			Pass:   "",
			Name:   "agencydesk",
			Schema: "agencydesk",
		},
		Planner:    Planner{AnchorWeekday: "monday"},
		Engagement: Engagement{Rollover: "none"},
		Risk: Risk{
			Rule:               "schedule",
			ApprovalMaxAgeDays: 7,
			WarningThreshold:   70,
		},
		Dashboard: Dashboard{UpcomingLimit: 8},
		Scheduler: Scheduler{
			Enabled: true,
			Cron:    "0 2 1 * *",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "AGENCYDESK_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "AGENCYDESK_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
