package templates

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/igolaizola/zhiyin/pkg/catalog"
)

type Config struct {
	Group string
}

// Run prints the scene templates of the catalog.
func Run(ctx context.Context, cfg *Config) error {
	return run(cfg, os.Stdout)
}

func run(cfg *Config, out io.Writer) error {
	c, err := catalog.Load()
	if err != nil {
		return err
	}
	ts := c.Templates
	if cfg.Group != "" {
		ts = c.Group(cfg.Group)
		if len(ts) == 0 {
			return fmt.Errorf("templates: unknown group %q", cfg.Group)
		}
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range ts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Group, t.Label, t.Template)
	}
	return w.Flush()
}
