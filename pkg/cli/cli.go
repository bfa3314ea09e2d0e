package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/igolaizola/zhiyin"
	"github.com/igolaizola/zhiyin/pkg/cmd/credits"
	"github.com/igolaizola/zhiyin/pkg/cmd/generate"
	"github.com/igolaizola/zhiyin/pkg/cmd/migrate"
	"github.com/igolaizola/zhiyin/pkg/cmd/serve"
	"github.com/igolaizola/zhiyin/pkg/cmd/studio"
	"github.com/igolaizola/zhiyin/pkg/cmd/templates"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const envPrefix = "ZHIYIN"

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("zhiyin", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "zhiyin [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newGenerateCommand(),
			newStudioCommand(),
			newCreditsCommand(),
			newServeCommand(),
			newMigrateCommand(),
			newTemplatesCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "zhiyin version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix(envPrefix),
	}
}

func storeFlags(fs *flag.FlagSet, typ, conn *string) {
	fs.StringVar(typ, "store-type", "local", "balance store type (local, redis, sqlite, mysql, postgres)")
	fs.StringVar(conn, "store-conn", "", "file path for local, url or address for redis, path for sqlite, dsn for mysql or postgres")
}

func appFlags(fs *flag.FlagSet, cfg *zhiyin.Config) {
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	storeFlags(fs, &cfg.StoreType, &cfg.StoreConn)
	fs.StringVar(&cfg.APIKey, "api-key", "", "api key, calls the engine directly instead of the proxy (development only)")
	fs.StringVar(&cfg.Engine, "engine", "gemini", "engine used in direct mode (gemini, openai)")
	fs.StringVar(&cfg.Model, "model", "", "model name, empty for the engine default")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "engine api base url, empty for the public one")
	fs.StringVar(&cfg.Endpoint, "endpoint", "", "proxy endpoint used without api key")
	fs.StringVar(&cfg.Proxy, "proxy", "", "http proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 2*time.Minute, "generation timeout")
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}
	appFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Hint, "hint", "", "what the song is about")
	fs.StringVar(&cfg.Template, "template", "", "catalog template id used when hint is empty")
	fs.StringVar(&cfg.Output, "output", "", "output file (.json or .csv), prints to stdout when empty")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("zhiyin %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "generate a twin song from a hint",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.Hint == "" && len(args) > 0 {
				cfg.Hint = strings.Join(args, " ")
			}
			return generate.Run(ctx, cfg)
		},
	}
}

func newStudioCommand() *ffcli.Command {
	cmd := "studio"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &studio.Config{}
	appFlags(fs, &cfg.Config)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("zhiyin %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "interactive song writing session",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return studio.Run(ctx, cfg)
		},
	}
}

func newCreditsCommand() *ffcli.Command {
	cmd := "credits"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &credits.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	storeFlags(fs, &cfg.StoreType, &cfg.StoreConn)
	fs.IntVar(&cfg.Add, "add", 0, "credits to add after a verified purchase")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("zhiyin %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "show or top up the credit balance",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return credits.Run(ctx, cfg)
		},
	}
}

func newServeCommand() *ffcli.Command {
	cmd := "serve"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &serve.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fs.StringVar(&cfg.APIKey, "api-key", "", "server held engine api key")
	fs.StringVar(&cfg.Engine, "engine", "gemini", "engine (gemini, openai)")
	fs.StringVar(&cfg.Model, "model", "", "model name, empty for the engine default")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "engine api base url, empty for the public one")
	fs.StringVar(&cfg.Proxy, "proxy", "", "http proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 2*time.Minute, "request timeout")
	fs.BoolVar(&cfg.Open, "open", false, "open the health page in the browser")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "credentials to use (semicolon separated) Example: user1:pass1;user2:pass2")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("zhiyin %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "run the generation proxy",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return serve.Serve(ctx, cfg)
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.StoreType, "store-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.StoreConn, "store-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("zhiyin %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create the sql balance store tables",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newTemplatesCommand() *ffcli.Command {
	cmd := "templates"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &templates.Config{}
	fs.StringVar(&cfg.Group, "group", "", "template group (life, creative), all when empty")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("zhiyin %s [flags]", cmd),
		ShortHelp:  "list the scene templates",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return templates.Run(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
