package migrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/igolaizola/zhiyin/pkg/credit"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	conn := filepath.Join(t.TempDir(), "zhiyin.db")
	if err := Run(ctx, &Config{StoreType: "sqlite", StoreConn: conn}); err != nil {
		t.Fatalf("Run() err = %v", err)
	}

	store, err := credit.NewStore(ctx, "sqlite", conn, false)
	if err != nil {
		t.Fatalf("NewStore() err = %v", err)
	}
	l := credit.NewLedger(store)
	v, err := l.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize() err = %v", err)
	}
	if v != credit.DefaultBalance {
		t.Errorf("balance = %d; want %d", v, credit.DefaultBalance)
	}
}

func TestRunUnknownType(t *testing.T) {
	if err := Run(context.Background(), &Config{StoreType: "local"}); err == nil {
		t.Fatal("Run() err = nil; want error")
	}
}
