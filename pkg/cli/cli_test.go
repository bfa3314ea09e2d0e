package cli

import (
	"flag"
	"testing"
)

func TestSubcommands(t *testing.T) {
	cmd := New("v1", "abc", "today")
	want := []string{"version", "generate", "studio", "credits", "serve", "migrate", "templates"}
	if len(cmd.Subcommands) != len(want) {
		t.Fatalf("subcommands = %d; want %d", len(cmd.Subcommands), len(want))
	}
	for i, name := range want {
		if got := cmd.Subcommands[i].Name; got != name {
			t.Errorf("subcommand %d = %q; want %q", i, got, name)
		}
	}
}

func TestMapValue(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var creds map[string]string
	fsMapVar(fs, &creds, "creds", nil, "")
	if err := fs.Parse([]string{"-creds", "user1:pass1;user2:pa:ss2"}); err != nil {
		t.Fatalf("Parse() err = %v", err)
	}
	if creds["user1"] != "pass1" || creds["user2"] != "pa:ss2" {
		t.Errorf("creds = %v", creds)
	}
	if err := fs.Parse([]string{"-creds", "broken"}); err == nil {
		t.Error("Parse(broken) err = nil; want error")
	}
}

func TestServeDefaults(t *testing.T) {
	for _, c := range New("", "", "").Subcommands {
		if c.Name != "serve" {
			continue
		}
		if got := c.FlagSet.Lookup("addr").DefValue; got != ":1337" {
			t.Errorf("addr default = %q; want :1337", got)
		}
		return
	}
	t.Fatal("serve command not found")
}
