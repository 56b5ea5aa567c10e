package texts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogRenders(t *testing.T) {
	c := Default()
	got := c.Render(KeyXPStatus, Params{"name": "@ana", "xp": 7})
	if !strings.Contains(got, "@ana") || !strings.Contains(got, "7") {
		t.Fatalf("unexpected render: %q", got)
	}
	if len(c.Triggers.DoublePlus) == 0 {
		t.Fatal("ожидали встроенные триггеры")
	}
}

func TestLoadOverridesMessagesAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texts.yaml")
	content := "messages:\n  leave: \"adiós {{.name}}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got := c.Render(KeyLeave, Params{"name": "Ana"}); got != "adiós Ana" {
		t.Fatalf("unexpected render: %q", got)
	}
	if c.Render(KeyEnabled, nil) == "" {
		t.Fatal("остальные шаблоны должны остаться встроенными")
	}
	if len(c.Triggers.SimplePlus) == 0 {
		t.Fatal("триггеры должны остаться встроенными")
	}
}

func TestLoadRejectsBrokenTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "texts.yaml")
	if err := os.WriteFile(path, []byte("messages:\n  leave: \"{{.name\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("ожидали ошибку разбора шаблона")
	}
}
