package config

import (
	"git.home.luguber.info/inful/docrestyle/internal/restyle"
	"git.home.luguber.info/inful/docrestyle/internal/retry"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&RestyleDefaultApplier{},
		&SiteDefaultApplier{},
		&DaemonDefaultApplier{},
		&EventsDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers() {
		a.ApplyDefaults(cfg)
	}
}

// RestyleDefaultApplier fills in the docutils to Bootstrap mapping.
type RestyleDefaultApplier struct{}

func (RestyleDefaultApplier) Domain() string { return "restyle" }

func (RestyleDefaultApplier) ApplyDefaults(cfg *Config) {
	d := restyle.DefaultOptions()
	t := &cfg.Restyle.Tables
	if t.Selector == "" {
		t.Selector = d.TableSelector
	}
	if t.MarkerClass == "" {
		t.MarkerClass = d.TableMarkerClass
	}
	if len(t.Classes) == 0 {
		t.Classes = append([]string(nil), d.TableClasses...)
	}
	if t.Border == nil {
		border := d.TableBorder
		t.Border = &border
	}

	ic := &cfg.Restyle.InlineCode
	if ic.Selector == "" {
		ic.Selector = d.InlineCodeSelector
	}
	if ic.Tag == "" {
		ic.Tag = d.InlineCodeTag
	}
	if ic.ReferenceClass == "" {
		ic.ReferenceClass = d.ReferenceClass
	}

	if cfg.Restyle.Search.EntryPoint == "" {
		cfg.Restyle.Search.EntryPoint = d.SearchEntryPoint
	}
}

type SiteDefaultApplier struct{}

func (SiteDefaultApplier) Domain() string { return "site" }

func (SiteDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Site.Root == "" {
		cfg.Site.Root = "./_build/html"
	}
	if len(cfg.Site.Extensions) == 0 {
		cfg.Site.Extensions = []string{".html", ".htm"}
	}
	if cfg.Site.Workers <= 0 {
		cfg.Site.Workers = 4
	}
}

type DaemonDefaultApplier struct{}

func (DaemonDefaultApplier) Domain() string { return "daemon" }

func (DaemonDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Daemon.HTTPAddr == nil {
		addr := "127.0.0.1:9464"
		cfg.Daemon.HTTPAddr = &addr
	}
	if cfg.Daemon.Debounce == "" {
		cfg.Daemon.Debounce = "500ms"
	}
}

type EventsDefaultApplier struct{}

func (EventsDefaultApplier) Domain() string { return "events" }

func (EventsDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "docrestyle.runs"
	}
	if cfg.Events.Stream == "" {
		cfg.Events.Stream = "DOCRESTYLE"
	}
	def := retry.DefaultPolicy()
	if cfg.Events.Retry.Backoff == "" {
		cfg.Events.Retry.Backoff = string(def.Mode)
	}
	if cfg.Events.Retry.Initial == "" {
		cfg.Events.Retry.Initial = def.Initial.String()
	}
	if cfg.Events.Retry.Max == "" {
		cfg.Events.Retry.Max = def.Max.String()
	}
	if cfg.Events.Retry.MaxRetries == nil {
		n := def.MaxRetries
		cfg.Events.Retry.MaxRetries = &n
	}
}
