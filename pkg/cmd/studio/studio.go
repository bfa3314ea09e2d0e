package studio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/igolaizola/zhiyin"
	"github.com/igolaizola/zhiyin/pkg/logging"
	"github.com/igolaizola/zhiyin/pkg/song"
	"github.com/igolaizola/zhiyin/pkg/studio"
	"go.uber.org/zap"
)

type Config struct {
	zhiyin.Config
}

const help = `Type a hint to generate a twin song, or a command:
  :refine <id> <A|B>  iterate over a variant
  :history            list the session songs
  :show <id>          print a song
  :clear              clear the session history
  :credits            show the remaining credits
  :templates          list the scene templates
  :template <id>      use a template as the next hint
  :inspire <id>       print a featured song
  :export <file>      export the history (.json or .csv)
  :pricing            show the credit packs
  :help               show this help
  :quit               exit`

// Run starts an interactive session on the terminal.
func Run(ctx context.Context, cfg *Config) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("studio: session started")
	defer logger.Info("studio: session ended")

	app, err := zhiyin.New(ctx, &cfg.Config, logger)
	if err != nil {
		return fmt.Errorf("studio: %w", err)
	}
	defer func() { _ = app.Close() }()

	return newSession(app, os.Stdin, os.Stdout).run(ctx)
}

type session struct {
	app *zhiyin.App
	in  *bufio.Scanner
	out io.Writer
	// draft is prefilled by :template, :inspire and :refine. The next line
	// is appended to it, an empty line sends it as is.
	draft string
}

func newSession(app *zhiyin.App, in io.Reader, out io.Writer) *session {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &session{app: app, in: sc, out: out}
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *session) run(ctx context.Context) error {
	s.printf("智音 ZhiYin · %d credits\n%s\n", s.app.Studio.Balance(), help)
	for {
		s.printf("> ")
		if !s.in.Scan() {
			s.printf("\n")
			return s.in.Err()
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		line := strings.TrimSpace(s.in.Text())
		if strings.HasPrefix(line, ":") {
			if quit := s.command(line); quit {
				return nil
			}
			continue
		}
		hint := line
		if s.draft != "" {
			hint = s.draft
			if line != "" {
				hint += "\n" + line
			}
		}
		if hint == "" {
			continue
		}
		s.generate(ctx, hint)
	}
}

func (s *session) generate(ctx context.Context, hint string) {
	s.printf("generating...\n")
	res, err := s.app.Studio.Generate(ctx, hint)
	if err != nil {
		s.printf("%s\n", studio.Message(err))
		if len(s.app.Catalog.Pricing) > 0 {
			s.printf("type :pricing to top up\n")
		}
		return
	}
	if res == nil {
		return
	}
	s.draft = ""
	s.printf("%s\n%d credits left\n", song.Format(res), s.app.Studio.Balance())
}

func (s *session) command(line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	switch name {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		s.printf("%s\n", help)
	case ":credits":
		s.printf("%d credits\n", s.app.Studio.Balance())
	case ":history":
		results := s.app.Studio.History().List()
		if len(results) == 0 {
			s.printf("history is empty\n")
		}
		for _, r := range results {
			s.printf("%s  %s  《%s》 %s\n", r.ID, r.CreatedAt.Format("15:04:05"), r.Title, r.Style)
		}
	case ":show":
		if len(args) != 1 {
			s.printf("usage: :show <id>\n")
			return false
		}
		r, err := s.app.Studio.History().Get(args[0])
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.printf("%s\n", song.Format(r))
	case ":clear":
		s.app.Studio.ClearHistory()
		s.printf("history cleared\n")
	case ":refine":
		if len(args) != 2 {
			s.printf("usage: :refine <id> <A|B>\n")
			return false
		}
		typ, err := song.ParseVariantType(args[1])
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		text, err := s.app.Studio.Refine(args[0], typ)
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.draft = text
		s.printf("%s\n\nwrite your changes, they are added below the text above, or send an empty line to use it as is\n", text)
	case ":templates":
		for _, t := range s.app.Catalog.Templates {
			s.printf("%-8s %-10s %s\n", t.ID, t.Group, t.Label)
		}
	case ":template":
		if len(args) != 1 {
			s.printf("usage: :template <id>\n")
			return false
		}
		t, err := s.app.Catalog.Template(args[0])
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.draft = t.Template
		s.printf("%s\n\nwrite the details to add below it, or send an empty line to use it as is\n", t.Template)
	case ":inspire":
		if len(args) != 1 {
			for _, i := range s.app.Catalog.Inspirations {
				s.printf("%s  %s  %s\n", i.ID, strings.Join(i.Tags, " "), strings.ReplaceAll(i.Snippet, "\n", " "))
			}
			return false
		}
		i, err := s.app.Catalog.Inspiration(args[0])
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.draft = i.Template
		s.printf("%s\n\nwrite the details to add below the template, or send an empty line to use it as is\n", i.Combined())
	case ":export":
		if len(args) != 1 {
			s.printf("usage: :export <file.json|file.csv>\n")
			return false
		}
		if err := s.app.Studio.History().Export(args[0]); err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.printf("exported %d songs to %s\n", s.app.Studio.History().Len(), args[0])
	case ":pricing":
		for _, p := range s.app.Catalog.Pricing {
			credits := strconv.Itoa(p.Credits)
			if p.Unlimited() {
				credits = "∞"
			}
			s.printf("%s  ¥%s (原价 ¥%s)  %s credits\n", p.Name, p.Price, p.OriginalPrice, credits)
			for _, f := range p.Features {
				s.printf("  - %s\n", f)
			}
		}
		c := s.app.Catalog.Contact
		s.printf("\n%s · %s\nWeChat: %s\n", c.Title, c.Subtitle, c.WeChat)
		for _, l := range c.Lines() {
			s.printf("  %s\n", l)
		}
	default:
		s.app.Logger.Debug("studio: unknown command", zap.String("command", name))
		s.printf("unknown command %s, type :help\n", name)
	}
	return false
}
