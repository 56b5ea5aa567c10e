package texts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"

	"tg-xp-bot/internal/domain"
)

// Ключи шаблонов сообщений.
const (
	KeyGreeting             = "greeting"
	KeyGroupGreeting        = "group_greeting"
	KeyWarn                 = "warn"
	KeyEnabled              = "enabled"
	KeyEnabledAlready       = "enabled_already"
	KeyEnabledNoRights      = "enabled_no_rights"
	KeyEnabledRuntimeError  = "enabled_runtime_error"
	KeyDisabled             = "disabled"
	KeyDisabledAlready      = "disabled_already"
	KeyDisabledNoRights     = "disabled_no_rights"
	KeyDisabledRuntimeError = "disabled_runtime_error"
	KeyXPStatus             = "xp_status"
	KeyXPChange             = "xp_change"
	KeyWait                 = "wait"
	KeyTopHeader            = "popular"
	KeyTopEmpty             = "popular_empty"
	KeyLeave                = "leave"
	KeyNewYearGreeting      = "new_year_greeting"
	KeyNewYearDeletion      = "new_year_deletion"
)

var requiredKeys = []string{
	KeyGreeting, KeyGroupGreeting, KeyWarn,
	KeyEnabled, KeyEnabledAlready, KeyEnabledNoRights, KeyEnabledRuntimeError,
	KeyDisabled, KeyDisabledAlready, KeyDisabledNoRights, KeyDisabledRuntimeError,
	KeyXPStatus, KeyXPChange, KeyWait, KeyTopHeader, KeyTopEmpty, KeyLeave,
	KeyNewYearGreeting, KeyNewYearDeletion,
}

//go:embed default.yaml
var defaultCatalog []byte

// Params: именованные подстановки шаблона.
type Params map[string]any

// Catalog содержит шаблоны сообщений и токены триггеров. После Load не меняется.
type Catalog struct {
	Triggers  domain.TriggerSet `yaml:"triggers"`
	Messages  map[string]string `yaml:"messages"`
	templates map[string]*template.Template
}

// Default возвращает встроенный каталог.
func Default() *Catalog {
	c, err := parse(defaultCatalog, nil)
	if err != nil {
		panic(fmt.Sprintf("texts: встроенный каталог повреждён: %v", err))
	}
	return c
}

// Load читает каталог из YAML-файла поверх встроенного. При пустом пути остаётся встроенный.
func Load(path string) (*Catalog, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение каталога: %w", err)
	}
	return parse(raw, base)
}

func parse(raw []byte, base *Catalog) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("разбор каталога: %w", err)
	}
	if base != nil {
		if c.Triggers.SimplePlus == nil && c.Triggers.DoublePlus == nil && c.Triggers.SimpleMinus == nil && c.Triggers.DoubleMinus == nil {
			c.Triggers = base.Triggers
		}
		merged := make(map[string]string, len(base.Messages))
		for k, v := range base.Messages {
			merged[k] = v
		}
		for k, v := range c.Messages {
			merged[k] = v
		}
		c.Messages = merged
	}
	c.templates = make(map[string]*template.Template, len(c.Messages))
	for _, key := range requiredKeys {
		if _, ok := c.Messages[key]; !ok {
			return nil, fmt.Errorf("нет шаблона %q", key)
		}
	}
	for key, text := range c.Messages {
		tpl, err := template.New(key).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("шаблон %q: %w", key, err)
		}
		c.templates[key] = tpl
	}
	return &c, nil
}

// Render подставляет параметры в шаблон. Ошибка подстановки не доходит до чата:
// возвращается исходный текст шаблона.
func (c *Catalog) Render(key string, params Params) string {
	tpl, ok := c.templates[key]
	if !ok {
		return key
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, map[string]any(params)); err != nil {
		return c.Messages[key]
	}
	return buf.String()
}
