package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

var cfg *koanf.Koanf

const (
	CMD             = "cmd"
	ARGS            = "args"
	LOG_LEVEL       = "log.level"
	STORE_PATH      = "store.path"
	TEMPLATES_PATH  = "templates.path"
	CRON_BINARY     = "cron.binary"
	CRON_MARKER     = "cron.marker"
	CRON_TOKEN      = "cron.token"
	CRON_EXECUTABLE = "cron.executable"
	CALDAV_URL      = "caldav.url"
	CALDAV_USER     = "caldav.user"
	CALDAV_PASS     = "caldav.pass"
	IMPORT_DAYS     = "import.days"

	NAME        = "name"
	DATE        = "date"
	SPONSOR     = "sponsor"
	DIRECTOR    = "director"
	TEAM        = "team"
	TOPIC       = "topic"
	DESCRIPTION = "description"
	STATUS      = "status"
	SEARCH      = "search"
	FORMAT      = "format"
	ID          = "id"
	DAYS        = "days"
	OUT         = "out"
	FILE        = "file"
	URL         = "url"
	CALDAV      = "caldav"
	CHANGED     = "changed"

	prefix = "TWOTOKENS_"
)

func Gist() *koanf.Koanf {
	if cfg == nil {
		ini(os.Args[1:])
	}
	return cfg
}

func Sprint() string {
	sb := strings.Builder{}
	sb.WriteString("log.level|optional|info\n")
	sb.WriteString("store.path|optional|config.json\n")
	sb.WriteString("templates.path|optional|-\n")
	sb.WriteString("cron.binary|optional|crontab\n")
	sb.WriteString("cron.marker|optional|# TwoTokens Automation\n")
	sb.WriteString("cron.token|optional|twotokens\n")
	sb.WriteString("cron.executable|optional|<this binary>\n")
	sb.WriteString("caldav.url|optional|-\n")
	sb.WriteString("caldav.user|optional|-\n")
	sb.WriteString("caldav.pass|optional|-\n")
	sb.WriteString("import.days|optional|30\n")
	sb.WriteString("env prefix: " + prefix + " (TWOTOKENS_STORE_PATH sets store.path)\n")
	return sb.String()
}

// Load rebuilds the configuration from args. Gist calls it with the
// process arguments on first use.
func Load(args []string) *koanf.Koanf {
	ini(args)
	return cfg
}

func ini(args []string) {
	cfg = koanf.New(".")

	f := flag.NewFlagSet("config", flag.ContinueOnError)
	f.Usage = func() {
		fmt.Println(f.FlagUsages())
		os.Exit(0)
	}

	f.String(LOG_LEVEL, "info", "log level")
	f.String(STORE_PATH, "config.json", "event document path")
	f.String(TEMPLATES_PATH, "", "yaml file overriding task templates")
	f.String(CRON_BINARY, "crontab", "crontab compatible binary")
	f.String(CRON_MARKER, "# TwoTokens Automation", "marker line of managed cron entries")
	f.String(CRON_TOKEN, "twotokens", "token identifying managed cron commands")
	f.String(CRON_EXECUTABLE, executable(), "binary invoked by managed cron entries")
	f.String(CALDAV_URL, "", "caldav calendar url")
	f.String(CALDAV_USER, "", "caldav user")
	f.String(CALDAV_PASS, "", "caldav password")
	f.Int(IMPORT_DAYS, 30, "recurrence expansion window in days")

	f.String(NAME, "", "event name")
	f.String(DATE, "", "event date, e.g. 2025-06-10T14:00:00")
	f.String(SPONSOR, "", "event sponsor")
	f.String(DIRECTOR, "", "event director")
	f.StringSlice(TEAM, nil, "comma separated team members")
	f.String(TOPIC, "", "event topic")
	f.String(DESCRIPTION, "", "event description")
	f.String(STATUS, "", "event status: scheduled|completed")
	f.String(SEARCH, "", "case insensitive search term")
	f.String(FORMAT, "table", "list format: table|summary|detailed")
	f.Int(ID, 0, "event id")
	f.Int(DAYS, 30, "days ahead for upcoming events")
	f.String(OUT, "events.ics", "export destination")
	f.String(FILE, "", "ics file to import")
	f.String(URL, "", "ics feed url to import")
	f.Bool(CALDAV, false, "import from the configured caldav calendar")
	if err := f.Parse(args); err != nil {
		log.Panic().Err(err).Msg("error parsing flags")
	}
	if err := cfg.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, prefix)), "_", ".", -1)
	}), nil); err != nil {
		log.Panic().Err(err).Msg("error loading environment")
	}
	// flags left at their default do not override the environment
	if err := cfg.Load(posflag.Provider(f, ".", cfg), nil); err != nil {
		log.Panic().Err(err).Msg("error loading config")
	}

	var changed []string
	f.Visit(func(fl *flag.Flag) {
		changed = append(changed, fl.Name)
	})
	cfg.Set(CHANGED, changed)

	positional := f.Args()
	switch {
	case len(positional) >= 2:
		cfg.Set(CMD, positional[0]+" "+positional[1])
		cfg.Set(ARGS, positional[2:])
	case len(positional) == 1:
		cfg.Set(CMD, positional[0])
		cfg.Set(ARGS, []string{})
	default:
		cfg.Set(CMD, "")
		cfg.Set(ARGS, []string{})
	}

	lvl, err := zerolog.ParseLevel(cfg.String(LOG_LEVEL))
	if err != nil {
		log.Panic().Err(err).Msg("error parsing log level")
	}
	zerolog.SetGlobalLevel(lvl)

	printCfg()
}

// Changed reports whether key was given explicitly on the command line.
func Changed(key string) bool {
	for _, name := range Gist().Strings(CHANGED) {
		if name == key {
			return true
		}
	}
	return false
}

func executable() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	if abs, err := filepath.Abs("twotokens"); err == nil {
		return abs
	}
	return "twotokens"
}

func printCfg() {
	log.Debug().Msgf("cmd: %s", cfg.String(CMD))
	log.Debug().Msgf("log_level: %s", cfg.String(LOG_LEVEL))
	log.Debug().Msgf("store_path: %s", cfg.String(STORE_PATH))
	log.Debug().Msgf("templates_path: %s", cfg.String(TEMPLATES_PATH))
	log.Debug().Msgf("cron_binary: %s", cfg.String(CRON_BINARY))
	log.Debug().Msgf("cron_executable: %s", cfg.String(CRON_EXECUTABLE))
	log.Debug().Msgf("caldav_url: %s", cfg.String(CALDAV_URL))
	log.Debug().Msgf("caldav_user: %s", cfg.String(CALDAV_USER))
}
